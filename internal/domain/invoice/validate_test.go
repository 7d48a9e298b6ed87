package invoice

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
)

func TestIsValidIMEI(t *testing.T) {
	tests := []struct {
		imei string
		want bool
	}{
		{"111111111111111", true},
		{"123456789012345678", true},
		{"12345678901234", false},
		{"1234567890123456", false},
		{"11111111111111a", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.imei, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIMEI(tt.imei))
		})
	}
}

func TestValidateInwardPayload(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantField string
	}{
		{
			name: "valid",
			payload: `{"invoiceNumber":"INV100","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
				"transporter":"T1","docketNumber":"D1",
				"items":[{"productCode":"P1","quantity":2,"imeis":["111111111111111","222222222222222"]}]}`,
		},
		{
			name: "missing invoice number",
			payload: `{"invoiceDate":"2024-01-01","deliveryDate":"2024-01-02","transporter":"T1","docketNumber":"D1",
				"items":[]}`,
			wantField: "invoiceNumber",
		},
		{
			name: "count mismatch",
			payload: `{"invoiceNumber":"INV1","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
				"transporter":"T1","docketNumber":"D1",
				"items":[{"productCode":"P1","quantity":3,"imeis":["111111111111111"]}]}`,
			wantField: "items[0].imeis",
		},
		{
			name: "bad imei",
			payload: `{"invoiceNumber":"INV1","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
				"transporter":"T1","docketNumber":"D1",
				"items":[{"productCode":"P1","quantity":1,"imeis":["12345"]}]}`,
			wantField: "items[0].imeis[0]",
		},
		{
			name: "duplicate across good and damaged",
			payload: `{"invoiceNumber":"INV1","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
				"transporter":"T1","docketNumber":"D1","damageReason":"crushed",
				"items":[{"productCode":"P1","quantity":1,"imeis":["111111111111111"],
				"damagedQuantity":1,"damagedImeis":["111111111111111"]}]}`,
			wantField: "items[0].imeis",
		},
		{
			name: "same imei on two items",
			payload: `{"invoiceNumber":"INV7","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
				"transporter":"T1","docketNumber":"D1",
				"items":[{"productCode":"P1","quantity":1,"imeis":["111111111111111"]},
				{"productCode":"P2","quantity":1,"imeis":["111111111111111"]}]}`,
			wantField: "items[1].imeis",
		},
		{
			name: "good imei reused as damaged on another item",
			payload: `{"invoiceNumber":"INV8","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
				"transporter":"T1","docketNumber":"D1","damageReason":"crushed",
				"items":[{"productCode":"P1","quantity":1,"imeis":["111111111111111"]},
				{"productCode":"P2","quantity":1,"imeis":["444444444444444"],"damagedQuantity":1,"damagedImeis":["111111111111111"]}]}`,
			wantField: "items[1].imeis",
		},
		{
			name: "imeis as newline block",
			payload: `{"invoiceNumber":"INV9","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
				"transporter":"T1","docketNumber":"D1",
				"items":[{"productCode":"P1","quantity":2,"imeis":"111111111111111\n 222222222222222 \n"}]}`,
		},
		{
			name: "damage without reason",
			payload: `{"invoiceNumber":"INV1","invoiceDate":"2024-01-01","deliveryDate":"2024-01-02",
				"transporter":"T1","docketNumber":"D1",
				"items":[{"productCode":"P1","quantity":1,"imeis":["111111111111111"],
				"damagedQuantity":1,"damagedImeis":["222222222222222"]}]}`,
			wantField: "damageReason",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInwardPayload([]byte(tt.payload))
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok, "expected AppError, got %v", err)
			assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
			assert.Contains(t, appErr.Details["fields"], tt.wantField)
		})
	}
}

func TestValidateOutwardPayload(t *testing.T) {
	valid := `{"invoiceNumber":"OUT1","invoiceDate":"2024-01-05","customerName":"C1","destination":"D1",
		"transporter":"T1","docketNumber":"K1",
		"items":[{"productCode":"P1","quantity":1,"imeis":["111111111111111"]}]}`
	assert.NoError(t, ValidateOutwardPayload([]byte(valid)))

	damaged := `{"invoiceNumber":"OUT1","invoiceDate":"2024-01-05","customerName":"C1","destination":"D1",
		"transporter":"T1","docketNumber":"K1",
		"items":[{"productCode":"P1","quantity":1,"imeis":["111111111111111"],"damagedQuantity":1,"damagedImeis":["222222222222222"]}]}`
	assert.Error(t, ValidateOutwardPayload([]byte(damaged)))

	shared := `{"invoiceNumber":"OUT2","invoiceDate":"2024-01-05","customerName":"C1","destination":"D1",
		"transporter":"T1","docketNumber":"K1",
		"items":[{"productCode":"P1","quantity":1,"imeis":["111111111111111"]},
		{"productCode":"P2","quantity":1,"imeis":["111111111111111"]}]}`
	err := ValidateOutwardPayload([]byte(shared))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Contains(t, appErr.Details["fields"], "items[1].imeis")
	assert.Contains(t, appErr.Message, "duplicate IMEI 111111111111111")
}

func TestItem_UnmarshalJSON(t *testing.T) {
	var it Item
	require.NoError(t, json.Unmarshal([]byte(`{"productCode":"P1","quantity":2,
		"imeis":"111111111111111\n\n222222222222222","damagedImeis":["333333333333333"]}`), &it))
	assert.Equal(t, "P1", it.ProductCode)
	assert.Equal(t, int64(2), it.Quantity)
	assert.Equal(t, []string{"111111111111111", "222222222222222"}, it.IMEIs)
	assert.Equal(t, []string{"333333333333333"}, it.DamagedIMEIs)

	var bad Item
	assert.Error(t, json.Unmarshal([]byte(`{"imeis":42}`), &bad))
}

func TestValidatePayload_MalformedJSON(t *testing.T) {
	err := ValidateInwardPayload([]byte(`{"invoiceNumber":`))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
}
