package metrics

// MultiSink fans events out to several sinks. Optional recorder interfaces
// are only forwarded to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordEstimate forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordEstimate(ev EstimateEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordEstimate(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordTrigger forwards trigger outcomes.
func (m *MultiSink) RecordTrigger(ev TriggerEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TriggerRecorder); ok {
			if err := rec.RecordTrigger(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFetch forwards fetch attempts.
func (m *MultiSink) RecordFetch(ev FetchEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FetchRecorder); ok {
			if err := rec.RecordFetch(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRequest forwards inbound request events.
func (m *MultiSink) RecordRequest(ev RequestEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RequestRecorder); ok {
			if err := rec.RecordRequest(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordJob forwards job transitions.
func (m *MultiSink) RecordJob(ev JobEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(JobRecorder); ok {
			if err := rec.RecordJob(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
