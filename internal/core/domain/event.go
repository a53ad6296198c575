package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event field names recognised by rule conditions and reference patterns.
const (
	FieldSourceType      = "source_type"
	FieldSourceID        = "source_id"
	FieldAmount          = "amount"
	FieldCategory        = "category"
	FieldDate            = "date"
	FieldContractID      = "contract_id"
	FieldCustomerID      = "customer_id"
	FieldVehicleID       = "vehicle_id"
	FieldContractNumber  = "contract_number"
	FieldInvoiceNumber   = "invoice_number"
	FieldCustomerName    = "customer_name"
	FieldPaymentMethod   = "payment_method"
	FieldReceiptNumber   = "receipt_number"
	FieldPenaltyType     = "penalty_type"
	FieldPlateNumber     = "plate_number"
	FieldAssetCategory   = "asset_category"
	FieldClearanceAmount = "clearance_amount"
	FieldPeriod          = "period"
)

var commonFields = []string{
	FieldSourceType, FieldSourceID, FieldAmount, FieldCategory, FieldDate,
	FieldContractID, FieldCustomerID, FieldVehicleID,
}

// payloadFields enumerates the extra payload fields each source type carries.
var payloadFields = map[SourceType][]string{
	SourceInvoice:            {FieldContractNumber, FieldInvoiceNumber, FieldCustomerName, FieldPlateNumber},
	SourcePayment:            {FieldContractNumber, FieldPaymentMethod, FieldReceiptNumber, FieldCustomerName},
	SourcePenalty:            {FieldContractNumber, FieldPenaltyType, FieldPlateNumber, FieldCustomerName},
	SourceDepreciation:       {FieldPlateNumber, FieldAssetCategory, FieldPeriod},
	SourceContractCompletion: {FieldContractNumber, FieldClearanceAmount, FieldPlateNumber, FieldCustomerName},
}

// KnownField reports whether name is a recognised field for the source type.
func KnownField(sourceType SourceType, name string) bool {
	for _, f := range commonFields {
		if f == name {
			return true
		}
	}
	for _, f := range payloadFields[sourceType] {
		if f == name {
			return true
		}
	}
	return false
}

// BusinessEvent is the payload describing a completed business action.
type BusinessEvent struct {
	SourceType SourceType        `json:"sourceType"`
	SourceID   string            `json:"sourceID"`
	Amount     decimal.Decimal   `json:"amount"`
	ContractID *string           `json:"contractID,omitempty"`
	CustomerID *string           `json:"customerID,omitempty"`
	VehicleID  *string           `json:"vehicleID,omitempty"`
	Category   string            `json:"category"`
	Date       time.Time         `json:"date"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Field returns the string value of a named field. Only recognised names
// for the event's source type resolve; anything else is reported missing.
func (e BusinessEvent) Field(name string) (string, bool) {
	if !KnownField(e.SourceType, name) {
		return "", false
	}
	switch name {
	case FieldSourceType:
		return string(e.SourceType), true
	case FieldSourceID:
		return e.SourceID, e.SourceID != ""
	case FieldAmount:
		return e.Amount.String(), true
	case FieldCategory:
		return e.Category, e.Category != ""
	case FieldDate:
		if e.Date.IsZero() {
			return "", false
		}
		return e.Date.Format("2006-01-02"), true
	case FieldContractID:
		return StringValue(e.ContractID), e.ContractID != nil
	case FieldCustomerID:
		return StringValue(e.CustomerID), e.CustomerID != nil
	case FieldVehicleID:
		return StringValue(e.VehicleID), e.VehicleID != nil
	}
	v, ok := e.Fields[name]
	return v, ok
}
