package domain

// Materiality is the severity tier of a flag.
type Materiality string

const (
	MaterialityHigh   Materiality = "High"
	MaterialityMedium Materiality = "Medium"
)

// Flag is the terminal, user-facing finding of the pipeline.
type Flag struct {
	ID          string      `json:"flag_id" validate:"required,startswith=F-"`
	Area        string      `json:"area" validate:"required"`
	Description string      `json:"description" validate:"required"`
	Evidence    string      `json:"evidence" validate:"required"`
	Materiality Materiality `json:"materiality" validate:"required,oneof=High Medium"`
}
