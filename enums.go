package labdb

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType is the declared type of an attribute value.
type ValueType int16

const (
	ValueObject  ValueType = 0
	ValueString  ValueType = 1
	ValueUnicode ValueType = 2
	ValueInteger ValueType = 3
	ValueFloat   ValueType = 4
	ValueBoolean ValueType = 5
)

var valueTypeNames = map[ValueType]string{
	ValueObject:  "object",
	ValueString:  "string",
	ValueUnicode: "unicode",
	ValueInteger: "integer",
	ValueFloat:   "float",
	ValueBoolean: "boolean",
}

func (v ValueType) String() string {
	if name, ok := valueTypeNames[v]; ok {
		return name
	}
	return fmt.Sprintf("ValueType(%d)", int16(v))
}

// Valid reports whether v is a known value type code.
func (v ValueType) Valid() bool {
	_, ok := valueTypeNames[v]
	return ok
}

// ParseValueType accepts a type name or its numeric code.
func ParseValueType(s string) (ValueType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for code, name := range valueTypeNames {
		if name == s {
			return code, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && ValueType(n).Valid() {
		return ValueType(n), nil
	}
	return 0, NewValidationError("valueType", fmt.Sprintf("unknown value type %q", s))
}

// ObjectType identifies what kind of runnable object produced a test result.
type ObjectType int16

const (
	ObjectModule ObjectType = iota
	ObjectSuite
	ObjectTest
	ObjectRunner
	ObjectUnknown
)

var objectTypeNames = []string{"module", "TestSuite", "Test", "TestRunner", "unknown"}

func (o ObjectType) String() string {
	if o >= 0 && int(o) < len(objectTypeNames) {
		return objectTypeNames[o]
	}
	return "unknown"
}

// ParseObjectType maps a name to its ObjectType. Unrecognized names are ObjectUnknown.
func ParseObjectType(s string) ObjectType {
	for i, name := range objectTypeNames {
		if name == s {
			return ObjectType(i)
		}
	}
	return ObjectUnknown
}

// TestResultCode is the verdict of a test run. Codes order by severity, with
// PASSED highest.
type TestResultCode int16

const (
	ResultExpectedFail TestResultCode = -4
	ResultNA           TestResultCode = -3
	ResultAbort        TestResultCode = -2
	ResultIncomplete   TestResultCode = -1
	ResultFailed       TestResultCode = 0
	ResultPassed       TestResultCode = 1
)

// AllResultCodes lists every result code in ascending order.
var AllResultCodes = []TestResultCode{
	ResultExpectedFail, ResultNA, ResultAbort, ResultIncomplete, ResultFailed, ResultPassed,
}

var resultCodeNames = map[TestResultCode]string{
	ResultExpectedFail: "EXPECTED_FAIL",
	ResultNA:           "NA",
	ResultAbort:        "ABORT",
	ResultIncomplete:   "INCOMPLETE",
	ResultFailed:       "FAILED",
	ResultPassed:       "PASSED",
}

func (c TestResultCode) String() string {
	if name, ok := resultCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("TestResultCode(%d)", int16(c))
}

// IsPass reports whether the verdict is a pass. An expected failure is not.
func (c TestResultCode) IsPass() bool {
	return c == ResultPassed
}

func (c TestResultCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *TestResultCode) UnmarshalText(b []byte) error {
	parsed, err := ParseTestResultCode(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseTestResultCode accepts a code name (case-insensitive) or its number.
func ParseTestResultCode(s string) (TestResultCode, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for code, name := range resultCodeNames {
		if name == upper {
			return code, nil
		}
	}
	if n, err := strconv.Atoi(upper); err == nil {
		if _, ok := resultCodeNames[TestResultCode(n)]; ok {
			return TestResultCode(n), nil
		}
	}
	return 0, NewValidationError("result", fmt.Sprintf("unknown test result %q", s))
}
