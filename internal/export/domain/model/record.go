package model

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Field names read from every exported document.
const (
	FieldRegistrationNo = "registrationNo"
	FieldVerified       = "verified"
	FieldVerifiedAt     = "verifiedAt"
)

// SystemCollectionPrefix marks collections reserved for the server's own bookkeeping.
const SystemCollectionPrefix = "system."

// CSVHeader is the fixed header row of every output file.
var CSVHeader = []string{"Reg No.", "verified", "verified at"}

// Boolean literals written to the verified column.
const (
	TrueLiteral  = "True"
	FalseLiteral = "False"
)

// IsSystemCollection reports whether name is reserved and must not be exported.
func IsSystemCollection(name string) bool {
	return strings.HasPrefix(name, SystemCollectionPrefix)
}

// Record is one document of an exported collection, reduced to the fields the export reads.
// A field missing from the document decodes to a zero RawValue; Row applies the defaults.
type Record struct {
	RegistrationNo bson.RawValue `bson:"registrationNo"`
	Verified       bson.RawValue `bson:"verified"`
	VerifiedAt     bson.RawValue `bson:"verifiedAt"`
}

// Row is the projection of a Record written as one CSV line.
type Row struct {
	RegistrationNo string
	Verified       bool
	VerifiedAt     string
}

// Row projects the record into its CSV row.
//   - registrationNo: rendered as text, "" when absent
//   - verified: see IsVerified
//   - verifiedAt: rendered as text, "" when absent
func (r *Record) Row() Row {
	return Row{
		RegistrationNo: FormatValue(r.RegistrationNo),
		Verified:       r.IsVerified(),
		VerifiedAt:     FormatValue(r.VerifiedAt),
	}
}

// IsVerified reports whether the record matches the {verified: true} filter:
// the field is true, or it is an array with a true element.
func (r *Record) IsVerified() bool {
	if v, ok := r.Verified.BooleanOK(); ok {
		return v
	}
	arr, ok := r.Verified.ArrayOK()
	if !ok {
		return false
	}
	values, err := arr.Values()
	if err != nil {
		return false
	}
	for _, elem := range values {
		if v, ok := elem.BooleanOK(); ok && v {
			return true
		}
	}
	return false
}

// Strings returns the row's cells in header order.
func (r Row) Strings() []string {
	return []string{r.RegistrationNo, FormatBool(r.Verified), r.VerifiedAt}
}

// FormatBool renders a boolean the way the verified column expects.
func FormatBool(b bool) string {
	if b {
		return TrueLiteral
	}
	return FalseLiteral
}

// FormatValue renders a BSON value as CSV cell text. Absent, null and undefined values are "".
func FormatValue(v bson.RawValue) string {
	switch v.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return ""
	case bsontype.String:
		return v.StringValue()
	case bsontype.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case bsontype.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case bsontype.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case bsontype.Boolean:
		return FormatBool(v.Boolean())
	case bsontype.DateTime:
		return formatDateTime(v.DateTime())
	case bsontype.ObjectID:
		return v.ObjectID().Hex()
	case bsontype.Decimal128:
		return v.Decimal128().String()
	case bsontype.Symbol:
		return v.Symbol()
	default:
		return v.String()
	}
}

// formatDateTime renders a BSON datetime (milliseconds since epoch) in UTC RFC 3339.
func formatDateTime(ms int64) string {
	t := time.UnixMilli(ms).UTC()
	if ms%1000 == 0 {
		return t.Format("2006-01-02T15:04:05Z07:00")
	}
	return t.Format("2006-01-02T15:04:05.000Z07:00")
}
