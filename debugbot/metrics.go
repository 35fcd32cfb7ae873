// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the bot's Prometheus instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	messagesReceived prometheus.Counter
	messagesSent     prometheus.Counter
	sendFailures     prometheus.Counter
	commands         *prometheus.CounterVec
	crawlSeconds     prometheus.Histogram
	partialCrawls    prometheus.Counter
	chattyMessages   prometheus.Counter
	panics           prometheus.Counter
	conversations    prometheus.Gauge
}

// NewMetrics creates the instruments and registers them with
// registerer when it is not nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "debugbot",
			Name:      "messages_received_total",
			Help:      "Messages received from counterparts.",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "debugbot",
			Name:      "messages_sent_total",
			Help:      "Messages the bot sent.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "debugbot",
			Name:      "send_failures_total",
			Help:      "Messages the bot failed to send.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "debugbot",
			Name:      "commands_total",
			Help:      "Text messages by the command they matched; none for unmatched text.",
		}, []string{"command"}),
		crawlSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "debugbot",
			Name:      "crawl_duration_seconds",
			Help:      "Time spent crawling conversations.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
		}),
		partialCrawls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "debugbot",
			Name:      "partial_crawls_total",
			Help:      "Crawls that timed out and returned partial data.",
		}),
		chattyMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "debugbot",
			Name:      "chatty_messages_total",
			Help:      "Unprompted messages sent to chatty conversations.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "debugbot",
			Name:      "handler_panics_total",
			Help:      "Event handlers that panicked and were recovered.",
		}),
		conversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "debugbot",
			Name:      "conversations",
			Help:      "Conversations the bot currently takes part in.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(
			metrics.messagesReceived,
			metrics.messagesSent,
			metrics.sendFailures,
			metrics.commands,
			metrics.crawlSeconds,
			metrics.partialCrawls,
			metrics.chattyMessages,
			metrics.panics,
			metrics.conversations,
		)
	}
	return metrics
}

func (m *Metrics) received() {
	if m != nil {
		m.messagesReceived.Inc()
	}
}

func (m *Metrics) sent() {
	if m != nil {
		m.messagesSent.Inc()
	}
}

func (m *Metrics) sendFailed() {
	if m != nil {
		m.sendFailures.Inc()
	}
}

func (m *Metrics) command(name string) {
	if m == nil {
		return
	}
	if name == "" {
		name = "none"
	}
	m.commands.WithLabelValues(name).Inc()
}

func (m *Metrics) crawled(seconds float64, partial bool) {
	if m == nil {
		return
	}
	m.crawlSeconds.Observe(seconds)
	if partial {
		m.partialCrawls.Inc()
	}
}

func (m *Metrics) chatty() {
	if m != nil {
		m.chattyMessages.Inc()
	}
}

func (m *Metrics) panicked() {
	if m != nil {
		m.panics.Inc()
	}
}

func (m *Metrics) setConversations(count int) {
	if m != nil {
		m.conversations.Set(float64(count))
	}
}
