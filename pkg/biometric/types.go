package biometric

// Modality identifies which kind of biometric sample a template was
// captured from. The tag travels with the template through capture,
// enrollment, and identification so the matching service can route the
// sample to the right matcher.
type Modality string

const (
	ModalityFingerprint Modality = "fingerprint"
	ModalityIris        Modality = "iris"
	ModalityFace        Modality = "face"
)

// Valid reports whether m is one of the supported modalities.
func (m Modality) Valid() bool {
	switch m {
	case ModalityFingerprint, ModalityIris, ModalityFace:
		return true
	}
	return false
}

// EnrollmentRequest is the payload sent to the matching service to register
// a captured template under a person identifier.
type EnrollmentRequest struct {
	Template string   `json:"template"`
	Type     Modality `json:"type"`
	PersonID string   `json:"person_id"`
}

// EnrollmentResult is the matching service's acknowledgement of a successful
// enrollment.
type EnrollmentResult struct {
	ReferenceID string `json:"reference_id"`
	Message     string `json:"message"`
}

// IdentificationRequest is the payload sent to the matching service to run a
// one-to-many search with a captured template.
type IdentificationRequest struct {
	Template string   `json:"template"`
	Type     Modality `json:"type"`
}

// IdentificationResult describes the person the matching service resolved a
// probe template to.
type IdentificationResult struct {
	PersonID string  `json:"person_id"`
	Score    float64 `json:"score,omitempty"`
	Message  string  `json:"message,omitempty"`
}
