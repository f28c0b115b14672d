package metrics

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordStep forwards to sinks implementing StepRecorder.
func (m *MultiSink) RecordStep(ev StepEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(StepRecorder); ok {
			if err := r.RecordStep(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRelaxation forwards to sinks implementing RelaxationRecorder.
func (m *MultiSink) RecordRelaxation(ev RelaxationEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(RelaxationRecorder); ok {
			if err := r.RecordRelaxation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the sinks that hold resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
