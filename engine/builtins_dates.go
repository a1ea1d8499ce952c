package engine

import (
	"math"
	"time"
)

func (e *Engine) installDates(b *Module) {
	dates := NewModule("Dates", b)
	dates.exportAll = true
	b.Set("Dates", dates)

	dates.Set("DateTime", DateTimeType)
	b.Set("DateTime", DateTimeType)

	now := e.def(dates, "now", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("now", args, 0, 0); err != nil {
			return nil, err
		}
		return DateTime(time.Now().UnixMilli()), nil
	})
	b.Set("now", now)

	e.def(dates, "datetime2unix", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("datetime2unix", args, 1, 1); err != nil {
			return nil, err
		}
		d, ok := args[0].(DateTime)
		if !ok {
			return nil, e.methodError("datetime2unix", args)
		}
		return float64(d) / 1000, nil
	})
	e.def(dates, "unix2datetime", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("unix2datetime", args, 1, 1); err != nil {
			return nil, err
		}
		s, ok := toFloat(args[0])
		if !ok {
			return nil, e.methodError("unix2datetime", args)
		}
		return DateTime(math.Round(s * 1000)), nil
	})

	field := func(name string, fn func(time.Time) int) {
		e.def(dates, name, func(_ *callCtx, args []Value) (Value, error) {
			if err := e.arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			d, ok := args[0].(DateTime)
			if !ok {
				return nil, e.methodError(name, args)
			}
			return int64(fn(d.Time())), nil
		})
	}
	field("year", time.Time.Year)
	field("month", func(t time.Time) int { return int(t.Month()) })
	field("day", time.Time.Day)
	field("hour", time.Time.Hour)
	field("minute", time.Time.Minute)
	field("second", time.Time.Second)
	field("millisecond", func(t time.Time) int { return t.Nanosecond() / int(time.Millisecond) })
}
