package domain

import "testing"

func TestStatusSets(t *testing.T) {
	terminal := map[OrderStatus]bool{
		StatusDelivered: true, StatusCompleted: true, StatusCancelled: true, StatusRejected: true,
	}
	for _, s := range AllStatuses {
		if !s.Valid() {
			t.Errorf("%s not valid", s)
		}
		if s.IsTerminal() != terminal[s] {
			t.Errorf("%s IsTerminal = %v", s, s.IsTerminal())
		}
	}
	if OrderStatus("shipped").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestPermissivePolicy(t *testing.T) {
	if !(PermissivePolicy{}).Allowed(OrderTypeDineIn, StatusCompleted, StatusPending) {
		t.Fatal("permissive policy rejected a transition")
	}
}

func TestStrictPolicy(t *testing.T) {
	tests := []struct {
		name      string
		orderType OrderType
		from, to  OrderStatus
		want      bool
	}{
		{"confirm", OrderTypeDineIn, StatusPending, StatusConfirmed, true},
		{"skip ahead", OrderTypeDineIn, StatusPending, StatusReady, false},
		{"backwards", OrderTypeTakeout, StatusReady, StatusPreparing, false},
		{"dispatch delivery", OrderTypeDelivery, StatusReady, StatusOutForDelivery, true},
		{"dispatch dine in", OrderTypeDineIn, StatusReady, StatusOutForDelivery, false},
		{"complete delivery", OrderTypeDelivery, StatusReady, StatusCompleted, false},
		{"complete takeout", OrderTypeTakeout, StatusReady, StatusCompleted, true},
		{"deliver", OrderTypeDelivery, StatusOutForDelivery, StatusDelivered, true},
		{"reject pending", OrderTypeDineIn, StatusPending, StatusRejected, true},
		{"cancel preparing", OrderTypeDelivery, StatusPreparing, StatusCancelled, true},
		{"reopen completed", OrderTypeDineIn, StatusCompleted, StatusPending, false},
		{"cancel delivered", OrderTypeDelivery, StatusDelivered, StatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (StrictPolicy{}).Allowed(tt.orderType, tt.from, tt.to); got != tt.want {
				t.Errorf("Allowed(%s, %s -> %s) = %v, want %v", tt.orderType, tt.from, tt.to, got, tt.want)
			}
		})
	}
}
