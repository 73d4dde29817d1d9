// Package commands turns free-text chat messages into structured intents.
package commands

type Type string

const (
	TypeGreeting    Type = "greeting"
	TypeHelp        Type = "help"
	TypeBalance     Type = "balance"
	TypeAirtime     Type = "airtime"
	TypeData        Type = "data"
	TypeElectricity Type = "electricity"
	TypeCableTV     Type = "cable_tv"
	TypeHistory     Type = "history"
	TypeReferral    Type = "referral"
	TypeUnknown     Type = "unknown"
)

func (t Type) Valid() bool {
	switch t {
	case TypeGreeting, TypeHelp, TypeBalance, TypeAirtime, TypeData,
		TypeElectricity, TypeCableTV, TypeHistory, TypeReferral, TypeUnknown:
		return true
	}
	return false
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Command is the parsed intent of one message. Zero-valued fields were not
// present in the text.
type Command struct {
	Type       Type
	Confidence Confidence
	// Text is the normalized message: lower-cased, trimmed, single-spaced.
	Text string
	// Error is set when a value was recognized but rejected, e.g. an airtime
	// amount outside the allowed range.
	Error string

	Amount          int64
	Phone           string
	Network         string
	DataSizeMB      int
	DataSizeDisplay string
	Provider        string
	MeterNumber     string
	Disco           string
	Smartcard       string
	ReferralCode    string
}

func (c Command) HasAmount() bool {
	return c.Amount > 0
}
