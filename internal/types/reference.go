package types

// ReferenceType categorizes a cross-file symbol relationship
type ReferenceType int

const (
	RefUnknown ReferenceType = iota
	RefMethodCall
	RefFieldAccess
	RefTypeReference
	RefInheritance
	RefInterfaceImpl
	RefStaticAccess
	RefConstructorCall
	RefAnnotation
	RefQueryDML
)

// referenceTypeStrings provides O(1) lookup for reference type names
var referenceTypeStrings = map[ReferenceType]string{
	RefMethodCall:      "method_call",
	RefFieldAccess:     "field_access",
	RefTypeReference:   "type_reference",
	RefInheritance:     "inheritance",
	RefInterfaceImpl:   "interface_implementation",
	RefStaticAccess:    "static_access",
	RefConstructorCall: "constructor_call",
	RefAnnotation:      "annotation_reference",
	RefQueryDML:        "query_dml_reference",
}

// String returns a string representation of the reference type
func (rt ReferenceType) String() string {
	if name, ok := referenceTypeStrings[rt]; ok {
		return name
	}
	return "unknown"
}

// ParseReferenceType parses a string into a ReferenceType
func ParseReferenceType(s string) ReferenceType {
	for rt, name := range referenceTypeStrings {
		if name == s {
			return rt
		}
	}
	return RefUnknown
}

// RawReference is a cross-file reference discovered during compilation,
// before the engine has registered either endpoint. The compiler ships
// these alongside the symbol table.
type RawReference struct {
	SourceID SymbolID      `json:"source_id"`
	TargetID SymbolID      `json:"target_id"`
	Type     ReferenceType `json:"type"`
	Location Location      `json:"location"`
}
