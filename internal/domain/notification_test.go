package domain

import "testing"

func TestLifecycleName(t *testing.T) {
	tests := []struct {
		code int64
		want string
	}{
		{1, "SUBSCRIPTION_RECOVERED"},
		{2, "SUBSCRIPTION_RENEWED"},
		{3, "SUBSCRIPTION_CANCELED"},
		{4, "SUBSCRIPTION_PURCHASED"},
		{5, "SUBSCRIPTION_ON_HOLD"},
		{6, "SUBSCRIPTION_IN_GRACE_PERIOD"},
		{7, "SUBSCRIPTION_RESTARTED"},
		{8, "SUBSCRIPTION_PRICE_CHANGE_CONFIRMED"},
		{9, "SUBSCRIPTION_DEFERRED"},
		{10, "SUBSCRIPTION_PAUSED"},
		{11, "SUBSCRIPTION_PAUSE_SCHEDULE_CHANGED"},
		{12, "SUBSCRIPTION_REVOKED"},
		{13, "SUBSCRIPTION_EXPIRED"},
		{20, "SUBSCRIPTION_PENDING_PURCHASE_CANCELED"},
		{0, "SUBSCRIPTION_UNKNOWN"},
		{14, "SUBSCRIPTION_UNKNOWN"},
		{999, "SUBSCRIPTION_UNKNOWN"},
	}

	for _, tt := range tests {
		if got := LifecycleName(tt.code); got != tt.want {
			t.Errorf("LifecycleName(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
