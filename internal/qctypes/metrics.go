package qctypes

import "fmt"

// Metrics is a bag of optional raw metric values, one field per entry in
// the closed vocabulary. A nil field represents the missing (⊥) value.
// Fixed fields (instead of a string-keyed map) keep the per-row ingest/
// normalize/assess path allocation-free.
type Metrics struct {
	SNR             *float64
	CNR             *float64
	FBER            *float64
	EFC             *float64
	FWHMAvg         *float64
	FWHMX           *float64
	FWHMY           *float64
	FWHMZ           *float64
	QI1             *float64
	QI2             *float64
	CJV             *float64
	WM2Max          *float64
	DVARS           *float64
	FDMean          *float64
	FDNum           *float64
	FDPerc          *float64
	GCOR            *float64
	GSRX            *float64
	GSRY            *float64
	OutlierFraction *float64
}

// Get returns the value of m and whether it is present.
func (mx Metrics) Get(m Metric) (float64, bool) {
	switch m {
	case SNR:
		return deref(mx.SNR)
	case CNR:
		return deref(mx.CNR)
	case FBER:
		return deref(mx.FBER)
	case EFC:
		return deref(mx.EFC)
	case FWHMAvg:
		return deref(mx.FWHMAvg)
	case FWHMX:
		return deref(mx.FWHMX)
	case FWHMY:
		return deref(mx.FWHMY)
	case FWHMZ:
		return deref(mx.FWHMZ)
	case QI1:
		return deref(mx.QI1)
	case QI2:
		return deref(mx.QI2)
	case CJV:
		return deref(mx.CJV)
	case WM2Max:
		return deref(mx.WM2Max)
	case DVARS:
		return deref(mx.DVARS)
	case FDMean:
		return deref(mx.FDMean)
	case FDNum:
		return deref(mx.FDNum)
	case FDPerc:
		return deref(mx.FDPerc)
	case GCOR:
		return deref(mx.GCOR)
	case GSRX:
		return deref(mx.GSRX)
	case GSRY:
		return deref(mx.GSRY)
	case OutlierFraction:
		return deref(mx.OutlierFraction)
	default:
		return 0, false
	}
}

// Set assigns v to the field for m.
func (mx *Metrics) Set(m Metric, v float64) {
	switch m {
	case SNR:
		mx.SNR = &v
	case CNR:
		mx.CNR = &v
	case FBER:
		mx.FBER = &v
	case EFC:
		mx.EFC = &v
	case FWHMAvg:
		mx.FWHMAvg = &v
	case FWHMX:
		mx.FWHMX = &v
	case FWHMY:
		mx.FWHMY = &v
	case FWHMZ:
		mx.FWHMZ = &v
	case QI1:
		mx.QI1 = &v
	case QI2:
		mx.QI2 = &v
	case CJV:
		mx.CJV = &v
	case WM2Max:
		mx.WM2Max = &v
	case DVARS:
		mx.DVARS = &v
	case FDMean:
		mx.FDMean = &v
	case FDNum:
		mx.FDNum = &v
	case FDPerc:
		mx.FDPerc = &v
	case GCOR:
		mx.GCOR = &v
	case GSRX:
		mx.GSRX = &v
	case GSRY:
		mx.GSRY = &v
	case OutlierFraction:
		mx.OutlierFraction = &v
	}
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// ValidationError describes one metric or subject field that failed a
// sanity check during ingest.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate enforces the per-metric sanity range (spec §3) and the two
// cross-field invariants: FWHM component/average agreement, and
// fd_num == 0 implies fd_perc == 0.
func (mx Metrics) Validate() []ValidationError {
	var errs []ValidationError

	for _, m := range AllMetrics() {
		v, ok := mx.Get(m)
		if !ok {
			continue
		}
		d := m.Descriptor()
		if v < d.Min || v > d.Max {
			errs = append(errs, ValidationError{
				Field:  d.Name,
				Reason: fmt.Sprintf("value %g outside sanity range [%g, %g]", v, d.Min, d.Max),
			})
		}
		if d.IsInteger && v != float64(int64(v)) {
			errs = append(errs, ValidationError{Field: d.Name, Reason: "value must be an integer"})
		}
	}

	if x, okx := mx.Get(FWHMX); okx {
		if y, oky := mx.Get(FWHMY); oky {
			if z, okz := mx.Get(FWHMZ); okz {
				if avg, oka := mx.Get(FWHMAvg); oka {
					mean := (x + y + z) / 3
					if diff := mean - avg; diff > 0.5 || diff < -0.5 {
						errs = append(errs, ValidationError{
							Field:  "fwhm_avg",
							Reason: fmt.Sprintf("mean(fwhm_x,y,z)=%g deviates from fwhm_avg=%g by more than 0.5", mean, avg),
						})
					}
				}
			}
		}
	}

	if n, ok := mx.Get(FDNum); ok && n == 0 {
		if perc, okp := mx.Get(FDPerc); okp && perc != 0 {
			errs = append(errs, ValidationError{
				Field:  "fd_perc",
				Reason: "fd_perc must be 0 when fd_num is 0",
			})
		}
	}

	return errs
}
