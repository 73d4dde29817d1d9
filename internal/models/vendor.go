package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Network string

const (
	NetworkMTN     Network = "mtn"
	NetworkGLO     Network = "glo"
	NetworkAirtel  Network = "airtel"
	Network9Mobile Network = "9mobile"
)

func ParseNetwork(s string) (Network, bool) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	return n, n.Valid()
}

func (n Network) Valid() bool {
	switch n {
	case NetworkMTN, NetworkGLO, NetworkAirtel, Network9Mobile:
		return true
	}
	return false
}

// Label is the upper-case name shown to users and sent to vendors.
func (n Network) Label() string {
	return strings.ToUpper(string(n))
}

type CableProvider string

const (
	CableDSTV      CableProvider = "dstv"
	CableGOTV      CableProvider = "gotv"
	CableStartimes CableProvider = "startimes"
)

func (p CableProvider) Valid() bool {
	switch p {
	case CableDSTV, CableGOTV, CableStartimes:
		return true
	}
	return false
}

func (p CableProvider) Label() string {
	return strings.ToUpper(string(p))
}

const (
	MeterPrepaid  = "prepaid"
	MeterPostpaid = "postpaid"
)

type AirtimeOrder struct {
	Phone          string
	Amount         decimal.Decimal
	Network        Network
	IdempotencyKey string
}

type DataOrder struct {
	Phone          string
	PlanID         string
	Network        Network
	IdempotencyKey string
}

type ElectricityOrder struct {
	MeterNumber    string
	Amount         decimal.Decimal
	Disco          string
	MeterType      string
	Phone          string
	IdempotencyKey string
}

type CableOrder struct {
	Smartcard      string
	PackageCode    string
	Provider       CableProvider
	Phone          string
	IdempotencyKey string
}

// VendResult carries the artifacts of a successful vendor purchase.
type VendResult struct {
	Reference string
	Token     string
	Units     string
	Message   string
	Raw       string
}

type DataPlan struct {
	ID       string          `json:"plan_id"`
	Network  string          `json:"network"`
	Name     string          `json:"name"`
	SizeMB   int             `json:"size_mb"`
	Price    decimal.Decimal `json:"amount"`
	Validity string          `json:"validity,omitempty"`
}

type CablePackage struct {
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type CustomerInfo struct {
	Name    string
	Address string
}

// PaymentEvent is a funding notification from the payment gateway.
type PaymentEvent struct {
	Event            string
	Amount           decimal.Decimal
	Reference        string
	AccountReference string
	Narration        string
}

type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type InboundMessage struct {
	ID        string
	From      string
	Name      string
	Type      string
	Text      string
	Timestamp time.Time
}

const PendingCablePackage = "cable_package"

// PendingAction is a short-lived record of a question the bot is waiting on.
type PendingAction struct {
	Kind         string         `json:"kind"`
	Provider     CableProvider  `json:"provider"`
	Smartcard    string         `json:"smartcard"`
	CustomerName string         `json:"customer_name,omitempty"`
	Packages     []CablePackage `json:"packages"`
	ExpiresAt    time.Time      `json:"expires_at"`
}
