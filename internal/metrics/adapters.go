package metrics

// ForwarderStats adapts the forwarder gauges and counters to the observer
// callbacks the notify package expects.
type ForwarderStats struct {
	m *Metrics
}

// Forwarder returns the stats sink for the profile event forwarder.
func (m *Metrics) Forwarder() *ForwarderStats {
	return &ForwarderStats{m: m}
}

func (s *ForwarderStats) SetBufferSize(n int) {
	s.m.ForwarderBufferSize.Set(float64(n))
}

func (s *ForwarderStats) IncFlush(status string) {
	s.m.ForwarderFlushesTotal.WithLabelValues(status).Inc()
}

func (s *ForwarderStats) AddEvents(n int) {
	s.m.ForwarderEventsTotal.Add(float64(n))
}

// OnboardingStats adapts the extraction and rollback instruments to the
// observer callbacks the registration package expects.
type OnboardingStats struct {
	m *Metrics
}

// Onboarding returns the stats sink for the registration pipeline.
func (m *Metrics) Onboarding() *OnboardingStats {
	return &OnboardingStats{m: m}
}

func (s *OnboardingStats) ObserveExtraction(seconds float64) {
	s.m.ExtractionDuration.Observe(seconds)
}

func (s *OnboardingStats) IncExtractionError() {
	s.m.ExtractionErrors.Inc()
}

func (s *OnboardingStats) IncRollback() {
	s.m.RollbacksTotal.Inc()
}
