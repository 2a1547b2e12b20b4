package csvdoc

import _ "embed"

// DefaultDocumentName is the storage name used when none is configured.
const DefaultDocumentName = "default"

//go:embed default.csv
var defaultCSV string

// DefaultCSV returns the sample annotation document loaded when storage holds
// no document.
func DefaultCSV() string {
	return defaultCSV
}

// DefaultConstrainedColumns lists the annotation columns of the sample
// document whose values come from a closed vocabulary.
var DefaultConstrainedColumns = []string{
	"Book",
	"IllocutionaryForce",
	"Modality",
	"Stance",
	"Evidentiality",
	"Face",
	"Veridicality",
	"EntailmentPattern",
	"InferenceType",
	"IsCancelled",
	"Code",
	"PresuppositionType",
	"ImplicatureType",
	"InvitedInference",
	"IsScalar",
	"ScaleType",
	"IsExhausted",
	"PredicationType",
}
