package recorder

import "mercator-hq/meridian/pkg/instrumentation"

type multiLogger []instrumentation.Logger

// Multi returns a logger that hands each record to every logger in order.
// Each logger receives its own copy.
func Multi(loggers ...instrumentation.Logger) instrumentation.Logger {
	var out multiLogger
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func (m multiLogger) Log(record *instrumentation.Record) {
	for _, l := range m {
		l.Log(record.Clone())
	}
}
