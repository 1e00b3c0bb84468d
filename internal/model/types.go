package model

import (
	"fmt"
	"strings"
)

// PrimitiveType is the declared type of a property.
type PrimitiveType string

const (
	String         PrimitiveType = "Edm.String"
	Boolean        PrimitiveType = "Edm.Boolean"
	Int16          PrimitiveType = "Edm.Int16"
	Int32          PrimitiveType = "Edm.Int32"
	Int64          PrimitiveType = "Edm.Int64"
	Decimal        PrimitiveType = "Edm.Decimal"
	Double         PrimitiveType = "Edm.Double"
	Date           PrimitiveType = "Edm.Date"
	DateTimeOffset PrimitiveType = "Edm.DateTimeOffset"
	TimeOfDay      PrimitiveType = "Edm.TimeOfDay"
	Guid           PrimitiveType = "Edm.Guid"
)

var primitiveTypes = []PrimitiveType{
	String, Boolean, Int16, Int32, Int64, Decimal, Double,
	Date, DateTimeOffset, TimeOfDay, Guid,
}

// ParsePrimitiveType accepts either the qualified name ("Edm.Int32") or the
// short lower-case form ("int32").
func ParsePrimitiveType(name string) (PrimitiveType, error) {
	for _, t := range primitiveTypes {
		if name == string(t) || strings.EqualFold(name, t.Short()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown primitive type %q", name)
}

// Short returns the unqualified lower-case type name.
func (t PrimitiveType) Short() string {
	return strings.ToLower(strings.TrimPrefix(string(t), "Edm."))
}

// IsNumeric reports whether arithmetic operators apply to the type.
func (t PrimitiveType) IsNumeric() bool {
	switch t {
	case Int16, Int32, Int64, Decimal, Double:
		return true
	}
	return false
}

// SQLType returns the column type used when bootstrapping a table.
func (t PrimitiveType) SQLType() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Int16, Int32, Int64:
		return "INTEGER"
	case Decimal:
		return "NUMERIC"
	case Double:
		return "REAL"
	default:
		return "TEXT"
	}
}
