package sheet

import (
	"strings"
	"unicode"
)

// ColumnToField converts a storage column name to its wire field name:
// the name is lower-cased and every "_x" becomes "X".
//
//	INVOICE_NUMBER -> invoiceNumber
//	IMEIS          -> imeis
func ColumnToField(column string) string {
	lower := strings.ToLower(column)
	var b strings.Builder
	b.Grow(len(lower))

	upperNext := false
	for i, r := range lower {
		if r == '_' && i+1 < len(lower) && isLowerLetter(rune(lower[i+1])) {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FieldToColumn is the lexical inverse of ColumnToField for names that
// follow the convention: every upper-case letter starts a new word.
//
//	deliveryDate -> DELIVERY_DATE
func FieldToColumn(field string) string {
	var b strings.Builder
	b.Grow(len(field) + 4)
	for i, r := range field {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func isLowerLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}
