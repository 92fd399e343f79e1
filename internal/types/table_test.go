package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestComputeSymbolID_Deterministic tests that identical triples reproduce
// identical IDs and that case never changes the result.
func TestComputeSymbolID_Deterministic(t *testing.T) {
	a := ComputeSymbolID("file:///src/account.cls", "AccountService", "save")
	b := ComputeSymbolID("file:///src/account.cls", "AccountService", "save")
	assert.Equal(t, a, b)

	// Case-insensitive language: casing must not change identity
	c := ComputeSymbolID("file:///src/Account.cls", "accountservice", "SAVE")
	d := ComputeSymbolID("file:///src/account.cls", "AccountService", "save")
	assert.Equal(t, c, d)

	// Different names produce different IDs
	e := ComputeSymbolID("file:///src/account.cls", "AccountService", "delete")
	assert.NotEqual(t, a, e)
}

// TestSymbolTable_ScopePath tests scope arena construction and path joining.
func TestSymbolTable_ScopePath(t *testing.T) {
	st := NewSymbolTable("file:///src/order.cls")

	classScope := st.AddScope(0, "OrderService")
	methodScope := st.AddScope(classScope, "submit")
	blockScope := st.AddScope(methodScope, "")

	assert.Equal(t, "", st.ScopePath(0))
	assert.Equal(t, "OrderService", st.ScopePath(classScope))
	assert.Equal(t, "OrderService.submit", st.ScopePath(methodScope))
	// Anonymous block scopes contribute nothing to the path
	assert.Equal(t, "OrderService.submit", st.ScopePath(blockScope))
	assert.Equal(t, 3, st.Scopes[blockScope].Depth)
}

// TestSymbolTable_AddSymbol tests ID assignment and FQN composition.
func TestSymbolTable_AddSymbol(t *testing.T) {
	st := NewSymbolTable("file:///src/order.cls")
	st.Namespace = "Sales"

	classScope := st.AddScope(0, "OrderService")
	cls := st.AddSymbol(Symbol{Name: "OrderService", Kind: KindClass, ScopeID: 0})
	method := st.AddSymbol(Symbol{Name: "submit", Kind: KindMethod, ScopeID: classScope, ParentID: cls.ID})

	assert.Equal(t, "Sales.OrderService", cls.FQN)
	assert.Equal(t, "Sales.OrderService.submit", method.FQN)
	assert.Equal(t, ComputeSymbolID("file:///src/order.cls", "", "OrderService"), cls.ID)
	assert.Equal(t, ComputeSymbolID("file:///src/order.cls", "OrderService", "submit"), method.ID)
	assert.Equal(t, cls.ID, method.ParentID)
}

// TestSymbolTable_LookupName tests the lazy case-insensitive name index.
func TestSymbolTable_LookupName(t *testing.T) {
	st := NewSymbolTable("file:///src/util.cls")
	st.AddSymbol(Symbol{Name: "Helper", Kind: KindClass, ScopeID: 0})

	helpers := st.LookupName("helper")
	require.Len(t, helpers, 1)
	assert.Equal(t, "Helper", helpers[0].Name)

	// Index rebuilds after mutation
	st.AddSymbol(Symbol{Name: "helper", Kind: KindVariable, ScopeID: 0})
	assert.Len(t, st.LookupName("HELPER"), 2)
	assert.Empty(t, st.LookupName("missing"))
}

// TestSymbolTable_TopLevelTypes tests that only file-scope type kinds qualify.
func TestSymbolTable_TopLevelTypes(t *testing.T) {
	st := NewSymbolTable("file:///src/mixed.cls")
	classScope := st.AddScope(0, "Outer")

	st.AddSymbol(Symbol{Name: "Outer", Kind: KindClass, ScopeID: 0})
	st.AddSymbol(Symbol{Name: "Status", Kind: KindEnum, ScopeID: 0})
	st.AddSymbol(Symbol{Name: "Inner", Kind: KindClass, ScopeID: classScope})
	st.AddSymbol(Symbol{Name: "count", Kind: KindField, ScopeID: classScope})

	tops := st.TopLevelTypes()
	require.Len(t, tops, 2)
	assert.Equal(t, "Outer", tops[0].Name)
	assert.Equal(t, "Status", tops[1].Name)
}

// TestSymbolKind_Strings tests kind round-tripping.
func TestSymbolKind_Strings(t *testing.T) {
	assert.Equal(t, "interface", KindInterface.String())
	assert.Equal(t, KindTrigger, ParseSymbolKind("trigger"))
	assert.Equal(t, KindUnknown, ParseSymbolKind("gadget"))
	assert.True(t, KindEnum.IsType())
	assert.False(t, KindMethod.IsType())
}

// TestReferenceType_Strings tests reference type round-tripping.
func TestReferenceType_Strings(t *testing.T) {
	for rt, name := range referenceTypeStrings {
		assert.Equal(t, rt, ParseReferenceType(name))
	}
	assert.Equal(t, "unknown", RefUnknown.String())
}
