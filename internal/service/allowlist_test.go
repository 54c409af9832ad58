package service

import (
	"errors"
	"testing"

	"github.com/efreitasn/escrowauction/internal/domain"
)

const testContract = "0x00000000000000000000000000000000000000c1"

func TestAllowlistService_Approve(t *testing.T) {
	tests := []struct {
		name    string
		req     ApproveContractRequest
		wantErr bool
	}{
		{"exclusive unit", ApproveContractRequest{Contract: testContract, Model: "exclusive_unit"}, false},
		{"with royalty", ApproveContractRequest{Contract: testContract, Model: "fractional_quantity", RoyaltyBps: 500, RoyaltyRecipient: subscriberA}, false},
		{"bad contract", ApproveContractRequest{Contract: "0x1", Model: "exclusive_unit"}, true},
		{"unknown model", ApproveContractRequest{Contract: testContract, Model: "erc20"}, true},
		{"royalty without recipient", ApproveContractRequest{Contract: testContract, Model: "exclusive_unit", RoyaltyBps: 100}, true},
		{"royalty plus fee above 100%", ApproveContractRequest{Contract: testContract, Model: "exclusive_unit", RoyaltyBps: 9800, RoyaltyRecipient: subscriberA}, true},
		{"negative royalty", ApproveContractRequest{Contract: testContract, Model: "exclusive_unit", RoyaltyBps: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allow := domain.NewAllowlist()
			svc := NewAllowlistService(allow, 250)
			_, err := svc.Approve(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Approve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok, _ := allow.IsApproved(domain.NormalizeAddress(tt.req.Contract)); ok == tt.wantErr {
				t.Errorf("IsApproved = %v after Approve (wantErr %v)", ok, tt.wantErr)
			}
		})
	}
}

func TestAllowlistService_Revoke(t *testing.T) {
	svc := NewAllowlistService(domain.NewAllowlist(), 0)
	if _, err := svc.Approve(ApproveContractRequest{Contract: testContract, Model: "exclusive_unit"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.List()) != 1 {
		t.Fatalf("expected one entry")
	}

	if err := svc.Revoke(testContract); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Revoke(testContract); !errors.Is(err, domain.ErrContractNotApproved) {
		t.Errorf("second revoke: got %v, want ErrContractNotApproved", err)
	}
}
