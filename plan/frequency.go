package plan

import (
	"errors"
	"strconv"
	"strings"

	"picoclock/clocks"
)

var errBadFrequency = errors.New("frequency must be an integer in Hz or a string such as \"12 MHz\"")

// Frequency is a clocks.Hertz that reads either a bare integer (Hz) or a
// string with a Hz, kHz or MHz suffix, and writes the short string form.
type Frequency clocks.Hertz

func (f Frequency) Hertz() clocks.Hertz { return clocks.Hertz(f) }

func (f *Frequency) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case int64:
		if v < 0 || v > int64(^uint32(0)) {
			return errBadFrequency
		}
		*f = Frequency(v)
		return nil
	case string:
		hz, err := ParseFrequency(v)
		if err != nil {
			return err
		}
		*f = Frequency(hz)
		return nil
	}
	return errBadFrequency
}

func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(clocks.Hertz(f).String()), nil
}

// ParseFrequency parses "48000000", "48 MHz", "32.768kHz" and the like.
func ParseFrequency(s string) (clocks.Hertz, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	scale := uint64(1)
	switch {
	case strings.HasSuffix(lower, "mhz"):
		scale, s = 1_000_000, s[:len(s)-3]
	case strings.HasSuffix(lower, "khz"):
		scale, s = 1_000, s[:len(s)-3]
	case strings.HasSuffix(lower, "hz"):
		s = s[:len(s)-2]
	}
	s = strings.TrimSpace(s)

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		return 0, errBadFrequency
	}
	w, err := strconv.ParseUint(whole, 10, 32)
	if err != nil {
		return 0, errBadFrequency
	}
	hz := w * scale

	// Fractional digits must resolve to whole hertz.
	if frac != "" {
		fd, err := strconv.ParseUint(frac, 10, 32)
		if err != nil {
			return 0, errBadFrequency
		}
		div := uint64(1)
		for range frac {
			div *= 10
		}
		if fd*scale%div != 0 {
			return 0, errBadFrequency
		}
		hz += fd * scale / div
	}
	if hz > uint64(^uint32(0)) {
		return 0, errBadFrequency
	}
	return clocks.Hertz(hz), nil
}
