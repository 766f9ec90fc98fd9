// Package metrics exports bench results to monitoring systems.
package metrics

import (
	"sort"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/hitpad/packages/stress"
)

// Exporter publishes the outcome of one bench run.
type Exporter interface {
	Export(result *stress.Result) error
}

// Exporters fans a result out to several exporters and stops at the first
// error.
type Exporters []Exporter

func (e Exporters) Export(result *stress.Result) error {
	for _, exp := range e {
		if err := exp.Export(result); err != nil {
			return err
		}
	}
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func statusCodes(s *stress.Summary) []uint16 {
	codes := make([]uint16, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func targetNames(s *stress.Summary) []string {
	names := make([]string, 0, len(s.Targets))
	for name := range s.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func passedValue(passed bool) float64 {
	if passed {
		return 1
	}
	return 0
}

func itoa(code uint16) string {
	return strconv.Itoa(int(code))
}
