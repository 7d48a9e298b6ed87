package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"stockbook/internal/core/apperror"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	imeiPattern = regexp.MustCompile(`^\d+$`)
)

// Validator returns the shared validator with the IMEI rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		_ = validate.RegisterValidation("imei", validateIMEI)
		validate.RegisterStructValidation(validateItem, Item{})
		validate.RegisterStructValidation(validateInward, InwardInvoice{})
		validate.RegisterStructValidation(validateOutward, OutwardInvoice{})

		// Report JSON field names, not Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// IsValidIMEI reports whether s is numeric and 15 or 18 characters long.
func IsValidIMEI(s string) bool {
	return (len(s) == 15 || len(s) == 18) && imeiPattern.MatchString(s)
}

func validateIMEI(fl validator.FieldLevel) bool {
	return IsValidIMEI(fl.Field().String())
}

// validateItem checks the counts against the stated quantities and that no
// IMEI is listed twice across the good and damaged sets.
func validateItem(sl validator.StructLevel) {
	item := sl.Current().Interface().(Item)

	if int64(len(item.IMEIs)) != item.Quantity {
		sl.ReportError(item.IMEIs, "imeis", "IMEIs", "imeis_match", "")
	}
	if int64(len(item.DamagedIMEIs)) != item.DamagedQuantity {
		sl.ReportError(item.DamagedIMEIs, "damagedImeis", "DamagedIMEIs", "imeis_match", "")
	}

	seen := make(map[string]struct{}, len(item.IMEIs)+len(item.DamagedIMEIs))
	for _, list := range [][]string{item.IMEIs, item.DamagedIMEIs} {
		for _, imei := range list {
			if _, dup := seen[imei]; dup {
				sl.ReportError(item.IMEIs, "imeis", "IMEIs", "unique_imeis", imei)
				return
			}
			seen[imei] = struct{}{}
		}
	}
}

func validateInward(sl validator.StructLevel) {
	inv := sl.Current().Interface().(InwardInvoice)
	if inv.DamagedTotal() > 0 && strings.TrimSpace(inv.DamageReason) == "" {
		sl.ReportError(inv.DamageReason, "damageReason", "DamageReason", "damage_reason", "")
	}
	checkSharedIMEIs(sl, inv.Items)
}

func validateOutward(sl validator.StructLevel) {
	inv := sl.Current().Interface().(OutwardInvoice)
	checkSharedIMEIs(sl, inv.Items)
}

// checkSharedIMEIs reports an IMEI listed on more than one item of the same
// invoice. Repeats inside a single item are left to validateItem.
func checkSharedIMEIs(sl validator.StructLevel, items []Item) {
	owner := make(map[string]int)
	for i, it := range items {
		for _, list := range [][]string{it.IMEIs, it.DamagedIMEIs} {
			for _, imei := range list {
				prev, seen := owner[imei]
				if !seen {
					owner[imei] = i
					continue
				}
				if prev != i {
					field := fmt.Sprintf("items[%d].imeis", i)
					sl.ReportError(it.IMEIs, field, field, "unique_imeis", imei)
					return
				}
			}
		}
	}
}

// ValidateInwardPayload decodes and validates an inward invoice payload.
func ValidateInwardPayload(payload []byte) error {
	var inv InwardInvoice
	if err := decodePayload(payload, &inv); err != nil {
		return err
	}
	return toAppError(Validator().Struct(inv))
}

// ValidateOutwardPayload decodes and validates an outward invoice payload.
// Damaged units are not accepted on outward items.
func ValidateOutwardPayload(payload []byte) error {
	var inv OutwardInvoice
	if err := decodePayload(payload, &inv); err != nil {
		return err
	}
	for i, it := range inv.Items {
		if it.DamagedQuantity != 0 || len(it.DamagedIMEIs) != 0 {
			return apperror.NewValidation(fmt.Sprintf("items[%d].damagedImeis: damaged units are not allowed on outward invoices", i)).
				WithDetail("field", fmt.Sprintf("items[%d].damagedImeis", i))
		}
	}
	return toAppError(Validator().Struct(inv))
}

func decodePayload(payload []byte, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return apperror.NewInvalidInput("invalid payload: "+err.Error(), err)
	}
	return nil
}

func toAppError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.NewValidation(err.Error())
	}

	messages := make([]string, 0, len(fieldErrs))
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fieldPath(fe.Namespace())
		fields = append(fields, field)
		messages = append(messages, field+": "+describe(fe))
	}

	return apperror.NewValidation(strings.Join(messages, "; ")).
		WithDetail("fields", fields)
}

// fieldPath strips the root struct name: "InwardInvoice.items[0].imeis" -> "items[0].imeis".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "imei":
		return "IMEI must be numeric with length 15 or 18"
	case "imeis_match":
		return "number of IMEIs must match the quantity"
	case "unique_imeis":
		return "duplicate IMEI " + fe.Param()
	case "damage_reason":
		return "damage reason is required when adding damaged items"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
