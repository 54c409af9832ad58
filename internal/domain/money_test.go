package domain

import "testing"

func TestEtherToWei(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"zero", "0", "0", false},
		{"one ether", "1", "1000000000000000000", false},
		{"one tenth", "0.1", "100000000000000000", false},
		{"two tenths", "0.2", "200000000000000000", false},
		{"one wei", "0.000000000000000001", "1", false},
		{"too precise", "0.0000000000000000001", "", true},
		{"garbage", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EtherToWei(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("EtherToWei(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("EtherToWei(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("EtherToWei(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseWei(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"zero", "0", "0", false},
		{"reserve", "2000", "2000", false},
		{"beyond int64", "100000000000000000000000", "100000000000000000000000", false},
		{"fractional", "1.5", "", true},
		{"negative", "-1", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWei(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseWei(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWei(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseWei(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestWeiToEther(t *testing.T) {
	if got := WeiToEther(MustEther("0.1")); got != "0.1" {
		t.Errorf("WeiToEther(0.1 ether) = %q, want 0.1", got)
	}
	if got := WeiToEther(Wei(2001)); got != "0.000000000000002001" {
		t.Errorf("WeiToEther(2001) = %q", got)
	}
}
