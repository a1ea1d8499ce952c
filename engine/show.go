package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// show renders v the way the runtime's repr does.
func show(v Value) string {
	switch x := v.(type) {
	case Nothing:
		return "nothing"
	case bool:
		return strconv.FormatBool(x)
	case int8, int16, int32, int64:
		return strconv.FormatInt(asInt64(x), 10)
	case uint8:
		return fmt.Sprintf("0x%02x", x)
	case uint16:
		return fmt.Sprintf("0x%04x", x)
	case uint32:
		return fmt.Sprintf("0x%08x", x)
	case uint64:
		return fmt.Sprintf("0x%016x", x)
	case float32:
		return formatFloat32(x)
	case float64:
		return formatFloat(x)
	case string:
		return strconv.Quote(x)
	case SubString:
		return strconv.Quote(x.String())
	case Tuple:
		parts := make([]string, len(x))
		for i, el := range x {
			parts[i] = show(el)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *Array:
		return showArray(x)
	case *Range:
		if x.Step == 1 {
			return fmt.Sprintf("%d:%d", x.Start, x.Stop)
		}
		return fmt.Sprintf("%d:%d:%d", x.Start, x.Step, x.Stop)
	case DateTime:
		t := x.Time()
		if t.Nanosecond() == 0 {
			return t.Format("2006-01-02T15:04:05")
		}
		return t.Format("2006-01-02T15:04:05.000")
	case *Regex:
		return `r"` + x.Pattern + `"`
	case *RegexMatch:
		s := "RegexMatch(" + show(x.Match)
		for i, c := range x.Captures {
			s += fmt.Sprintf(", %d=%s", i+1, show(c))
		}
		return s + ")"
	case *Struct:
		parts := make([]string, len(x.Fields))
		for i, f := range x.Fields {
			parts[i] = show(f)
		}
		return x.Type.Name + "(" + strings.Join(parts, ", ") + ")"
	case *Function:
		return x.Name
	case *Module:
		return x.FullName()
	case *DataType:
		return x.Name
	case colon:
		return ":"
	}
	return fmt.Sprint(v)
}

// display renders v the way string(v) and print do: strings raw,
// everything else as show.
func display(v Value) string {
	if s, ok := isStringish(v); ok {
		return s
	}
	return show(v)
}

func showArray(a *Array) string {
	elems := func(data []Value) string {
		parts := make([]string, len(data))
		for i, el := range data {
			parts[i] = show(el)
		}
		return strings.Join(parts, ", ")
	}
	switch {
	case len(a.Data) == 0 && len(a.Dims) == 1:
		return a.Elem.Name + "[]"
	case len(a.Dims) == 1:
		return "[" + elems(a.Data) + "]"
	case len(a.Dims) == 2:
		m, n := a.Dims[0], a.Dims[1]
		rows := make([]string, m)
		for i := 0; i < m; i++ {
			cols := make([]string, n)
			for j := 0; j < n; j++ {
				cols[j] = show(a.Data[i+j*m])
			}
			rows[i] = strings.Join(cols, " ")
		}
		return "[" + strings.Join(rows, "; ") + "]"
	}
	dims := make([]string, len(a.Dims))
	for i, d := range a.Dims {
		dims[i] = strconv.Itoa(d)
	}
	return "reshape([" + elems(a.Data) + "], " + strings.Join(dims, ", ") + ")"
}

func formatFloat(f float64) string {
	return formatFloatBits(f, 64)
}

func formatFloat32(f float32) string {
	s := formatFloatBits(float64(f), 32)
	switch {
	case s == "NaN":
		return "NaN32"
	case strings.HasSuffix(s, "Inf"):
		return s + "32"
	case strings.Contains(s, "e"):
		return strings.Replace(s, "e", "f", 1)
	}
	return s + "f0"
}

// formatFloatBits prints the shortest representation that round-trips,
// in fixed notation for magnitudes in [1e-5, 1e16) and as 1.0e-6 style
// otherwise.
func formatFloatBits(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(f)
	if abs >= 1e-5 && abs < 1e16 {
		s := strconv.FormatFloat(f, 'f', -1, bits)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(f, 'e', -1, bits)
	mant, exp, _ := strings.Cut(s, "e")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	sign := ""
	if exp[0] == '-' {
		sign = "-"
	}
	exp = strings.TrimLeft(exp[1:], "0")
	if exp == "" {
		exp = "0"
	}
	return mant + "e" + sign + exp
}
