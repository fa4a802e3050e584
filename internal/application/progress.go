// internal/application/progress.go
package application

// Progress is the derived UI-affordance state of a form: which sections
// the applicant may enter right now and whether submit is available. It
// is a pure function of the completion map and the submitted flag.
type Progress struct {
	Enterable []Section `json:"enterable"`
	CanSubmit bool      `json:"canSubmit"`
	Submitted bool      `json:"submitted"`
}

// Enterable reports whether a section may currently be entered: the first
// section always, any other section once its predecessor is complete.
// A submitted form is frozen entirely.
func Enterable(f *Form, section Section) bool {
	if f.Submitted {
		return false
	}
	for i, candidate := range SectionOrder {
		if candidate != section {
			continue
		}
		if i == 0 {
			return true
		}
		return f.Completed[SectionOrder[i-1]]
	}
	return false
}

// ProgressOf derives the affordance state for a form.
func ProgressOf(f *Form) Progress {
	p := Progress{Submitted: f.Submitted}
	if f.Submitted {
		return p
	}
	for _, section := range SectionOrder {
		if Enterable(f, section) {
			p.Enterable = append(p.Enterable, section)
		}
	}
	p.CanSubmit = f.Complete()
	return p
}
