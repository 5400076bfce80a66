package mortgage

// Limits are the ČNB macroprudential limits. Applicants younger than
// YoungAgeBelow get the relaxed variants.
type Limits struct {
	MaxLTV        float64 `json:"ltv_max"`
	MaxLTVYoung   float64 `json:"ltv_max_young"`
	MaxDSTI       float64 `json:"dsti_max"`
	MaxDSTIYoung  float64 `json:"dsti_max_young"`
	MaxDTI        float64 `json:"dti_max"`
	MaxDTIYoung   float64 `json:"dti_max_young"`
	YoungAgeBelow int     `json:"young_age_below"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxLTV:        0.80,
		MaxLTVYoung:   0.90,
		MaxDSTI:       0.45,
		MaxDSTIYoung:  0.50,
		MaxDTI:        8.5,
		MaxDTIYoung:   9.5,
		YoungAgeBelow: 36,
	}
}

// Applied is the set of limits that holds for one applicant.
type Applied struct {
	LTV   float64
	DSTI  float64
	DTI   float64
	Young bool
}

// ForAge picks the limits for an applicant. An unknown age gets the
// standard limits.
func (l Limits) ForAge(age float64, known bool) Applied {
	if known && l.YoungAgeBelow > 0 && age < float64(l.YoungAgeBelow) {
		return Applied{LTV: l.MaxLTVYoung, DSTI: l.MaxDSTIYoung, DTI: l.MaxDTIYoung, Young: true}
	}
	return Applied{LTV: l.MaxLTV, DSTI: l.MaxDSTI, DTI: l.MaxDTI}
}

// WithDefaults fills every zero value from DefaultLimits so a partially
// configured provider never yields a zero limit.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxLTV <= 0 {
		l.MaxLTV = d.MaxLTV
	}
	if l.MaxLTVYoung <= 0 {
		l.MaxLTVYoung = d.MaxLTVYoung
	}
	if l.MaxDSTI <= 0 {
		l.MaxDSTI = d.MaxDSTI
	}
	if l.MaxDSTIYoung <= 0 {
		l.MaxDSTIYoung = d.MaxDSTIYoung
	}
	if l.MaxDTI <= 0 {
		l.MaxDTI = d.MaxDTI
	}
	if l.MaxDTIYoung <= 0 {
		l.MaxDTIYoung = d.MaxDTIYoung
	}
	if l.YoungAgeBelow <= 0 {
		l.YoungAgeBelow = d.YoungAgeBelow
	}
	return l
}
