package analysis

import (
	"reflect"
	"testing"
)

func TestPackageName(t *testing.T) {
	tests := map[string]string{
		"CustomerOrder":        "Customer_Order_API",
		"Fnd":                  "Fnd_API",
		"InventoryPartInStock": "Inventory_Part_In_Stock_API",
	}
	for in, want := range tests {
		if got := PackageName(in); got != want {
			t.Errorf("PackageName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAnalyzeFile_PLSQL(t *testing.T) {
	src := `-----------------------------------------------------------------------------
-- Calls Old_Thing_API in a comment only
PROCEDURE Release_Order (
   order_no_ IN VARCHAR2 )
IS
BEGIN
   Customer_Order_Line_API.Release(order_no_);
   Fnd_Session_API.Get_Fnd_User;
   Customer_Order_API.Check_Exist(order_no_);
END Release_Order;

FUNCTION Get_State (
   order_no_ IN VARCHAR2 ) RETURN VARCHAR2
IS
BEGIN
   RETURN NULL;
END Get_State;
`
	info := AnalyzeFile("order/source/order/database/CustomerOrder.plsql", []byte(src))

	if info.Name != "CustomerOrder" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.Type != "plsql" {
		t.Errorf("Type = %q", info.Type)
	}
	if info.Component != "order" {
		t.Errorf("Component = %q", info.Component)
	}
	wantAPIs := []string{"Customer_Order_API", "Get_State", "Release_Order"}
	if !reflect.DeepEqual(info.APIs, wantAPIs) {
		t.Errorf("APIs = %v, want %v", info.APIs, wantAPIs)
	}
	wantRefs := []string{"Customer_Order_Line_API", "Fnd_Session_API"}
	if !reflect.DeepEqual(info.References, wantRefs) {
		t.Errorf("References = %v, want %v", info.References, wantRefs)
	}
	if info.Lines != 17 {
		t.Errorf("Lines = %d, want 17", info.Lines)
	}
	if info.Size != int64(len(src)) {
		t.Errorf("Size = %d, want %d", info.Size, len(src))
	}
}

func TestAnalyzeFile_Entity(t *testing.T) {
	src := "entityname CustomerOrder;\ncomponent ORDER;\n"
	info := AnalyzeFile("order/model/order/CustomerOrder.entity", []byte(src))

	if info.Entity != "CustomerOrder" {
		t.Errorf("Entity = %q", info.Entity)
	}
	if info.Type != "entity" {
		t.Errorf("Type = %q", info.Type)
	}
	if len(info.APIs) != 0 {
		t.Errorf("APIs = %v, want none", info.APIs)
	}
}

func TestAnalyzeFile_Projection(t *testing.T) {
	src := `projection CustomerOrderHandling;
component ORDER;
include fragment CustomerOrderInitialCheck;
entityset CustomerOrderSet for CustomerOrder;
entityset ReferenceSiteSet for Site;
`
	info := AnalyzeFile("order/model/order/CustomerOrderHandling.projection", []byte(src))

	if info.Entity != "CustomerOrderHandling" {
		t.Errorf("Entity = %q", info.Entity)
	}
	wantAPIs := []string{"CustomerOrderSet", "ReferenceSiteSet"}
	if !reflect.DeepEqual(info.APIs, wantAPIs) {
		t.Errorf("APIs = %v, want %v", info.APIs, wantAPIs)
	}
	wantRefs := []string{"CustomerOrderInitialCheck"}
	if !reflect.DeepEqual(info.References, wantRefs) {
		t.Errorf("References = %v, want %v", info.References, wantRefs)
	}
}

func TestAnalyzeFile_FragmentDefinesItsName(t *testing.T) {
	info := AnalyzeFile("order/model/order/CustomerOrderInitialCheck.fragment",
		[]byte("fragment CustomerOrderInitialCheck;\n"))

	if !reflect.DeepEqual(info.APIs, []string{"CustomerOrderInitialCheck"}) {
		t.Errorf("APIs = %v", info.APIs)
	}
}

func TestAnalyzeFile_NoComponent(t *testing.T) {
	info := AnalyzeFile("Loose.sql", []byte("SELECT 1 FROM dual;"))
	if info.Component != "" {
		t.Errorf("Component = %q, want empty", info.Component)
	}
	if info.Lines != 1 {
		t.Errorf("Lines = %d, want 1", info.Lines)
	}
}

func TestAnalyzeFile_ReferencesIgnoreCase(t *testing.T) {
	src := `PROCEDURE Reserve (order_no_ IN VARCHAR2)
IS
BEGIN
   CUSTOMER_ORDER_LINE_API.Reserve(order_no_);
   customer_order_line_api.Check_Exist(order_no_);
   CUSTOMER_ORDER_API.Set_Released(order_no_);
END Reserve;
`
	info := AnalyzeFile("order/source/order/database/CustomerOrder.plsql", []byte(src))

	wantRefs := []string{"CUSTOMER_ORDER_LINE_API"}
	if !reflect.DeepEqual(info.References, wantRefs) {
		t.Errorf("References = %v, want %v", info.References, wantRefs)
	}
}
