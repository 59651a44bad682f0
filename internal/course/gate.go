package course

// Eligibility is the certificate and final exam gating derived from a
// snapshot. It holds no state of its own.
type Eligibility struct {
	IsComplete        bool
	HasCertificate    bool
	CanRequest        bool
	CanView           bool
	FinalExamUnlocked bool
}

// IsCourseComplete reports whether every lesson of a non-empty course is
// complete.
func IsCourseComplete(s Stats) bool {
	return s.CompletionPercentage == 100 && s.TotalLessons > 0
}

// CanRequestCertificate reports whether a certificate may be generated.
func CanRequestCertificate(s Stats, hasCertificate bool) bool {
	return IsCourseComplete(s) && !hasCertificate
}

// CanViewCertificate reports whether an issued certificate can be shown.
func CanViewCertificate(hasCertificate bool) bool {
	return hasCertificate
}

// FinalExamUnlocked reports whether the final exam may be started.
func FinalExamUnlocked(s Stats, hasFinalExam bool) bool {
	return hasFinalExam && IsCourseComplete(s)
}

// Evaluate derives the full eligibility for a snapshot.
func Evaluate(s Stats, hasCertificate, hasFinalExam bool) Eligibility {
	return Eligibility{
		IsComplete:        IsCourseComplete(s),
		HasCertificate:    hasCertificate,
		CanRequest:        CanRequestCertificate(s, hasCertificate),
		CanView:           CanViewCertificate(hasCertificate),
		FinalExamUnlocked: FinalExamUnlocked(s, hasFinalExam),
	}
}
