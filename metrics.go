package parallelreader

import "github.com/prometheus/client_golang/prometheus"

// StatsSource is anything that reports Stats, typically a *Stream or *Reader.
type StatsSource interface {
	Stats() Stats
}

// Collector exports the counters of one stream as Prometheus metrics. Every
// metric carries a "stream" label with the name given to NewCollector.
type Collector struct {
	src StatsSource

	produced      *prometheus.Desc
	consumed      *prometheus.Desc
	sourceReads   *prometheus.Desc
	producerWaits *prometheus.Desc
	consumerWaits *prometheus.Desc
	buffered      *prometheus.Desc
	capacity      *prometheus.Desc
	running       *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for src. Register it with a
// prometheus.Registerer; it reads src only while being scraped.
func NewCollector(name string, src StatsSource) *Collector {
	labels := prometheus.Labels{"stream": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("parallelreader", "", metric), help, nil, labels)
	}

	return &Collector{
		src:           src,
		produced:      desc("produced_total", "Characters published into the ring by the producer."),
		consumed:      desc("consumed_total", "Characters read from the ring by the consumer."),
		sourceReads:   desc("source_reads_total", "Read calls issued to the underlying source."),
		producerWaits: desc("producer_waits_total", "Idle calls made by the producer on a full ring."),
		consumerWaits: desc("consumer_waits_total", "Idle calls made by the consumer on an empty ring."),
		buffered:      desc("buffered", "Characters produced but not yet consumed."),
		capacity:      desc("capacity", "Effective ring capacity."),
		running:       desc("producer_running", "1 while the background producer is running."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.produced
	ch <- c.consumed
	ch <- c.sourceReads
	ch <- c.producerWaits
	ch <- c.consumerWaits
	ch <- c.buffered
	ch <- c.capacity
	ch <- c.running
}

// Collect implements prometheus.Collector. Values are read from a fresh
// Stats snapshot on every scrape.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	running := 0.0
	if s.Running {
		running = 1
	}

	ch <- prometheus.MustNewConstMetric(c.produced, prometheus.CounterValue, float64(s.Produced))
	ch <- prometheus.MustNewConstMetric(c.consumed, prometheus.CounterValue, float64(s.Consumed))
	ch <- prometheus.MustNewConstMetric(c.sourceReads, prometheus.CounterValue, float64(s.SourceReads))
	ch <- prometheus.MustNewConstMetric(c.producerWaits, prometheus.CounterValue, float64(s.ProducerWaits))
	ch <- prometheus.MustNewConstMetric(c.consumerWaits, prometheus.CounterValue, float64(s.ConsumerWaits))
	ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(s.Buffered()))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
}
