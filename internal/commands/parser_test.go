package commands

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParser_FixedPhrases(t *testing.T) {
	p := NewParser(DefaultMinAirtime, DefaultMaxAirtime)

	tests := []struct {
		text string
		want Type
	}{
		{"hi", TypeGreeting},
		{"Good   Morning", TypeGreeting},
		{"start", TypeGreeting},
		{"help", TypeHelp},
		{"what can you do", TypeHelp},
		{"balance", TypeBalance},
		{"bal", TypeBalance},
		{"check wallet", TypeBalance},
		{"history", TypeHistory},
		{"txns", TypeHistory},
		{"referral", TypeReferral},
		{"ref code", TypeReferral},
		{"", TypeUnknown},
		{"   ", TypeUnknown},
		{"what is the weather", TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd := p.Parse(tt.text)
			assert.Equal(t, tt.want, cmd.Type)
			if tt.want == TypeUnknown {
				assert.Equal(t, ConfidenceLow, cmd.Confidence)
			} else {
				assert.Equal(t, ConfidenceHigh, cmd.Confidence)
			}
		})
	}
}

func TestParser_CaseAndWhitespaceInsensitive(t *testing.T) {
	p := NewParser(DefaultMinAirtime, DefaultMaxAirtime)

	want := p.Parse("balance")
	for _, text := range []string{"BALANCE", "  balance  ", "Balance", "\tbalance\n"} {
		assert.Equal(t, want, p.Parse(text), text)
	}
	assert.Equal(t, p.Parse("buy 1000 airtime"), p.Parse("  BUY   1000\tAirtime "))
}

func TestParser_GreetingWithReferralCode(t *testing.T) {
	p := NewParser(DefaultMinAirtime, DefaultMaxAirtime)

	cmd := p.Parse("start abcd2345")
	assert.Equal(t, TypeGreeting, cmd.Type)
	assert.Equal(t, "ABCD2345", cmd.ReferralCode)

	assert.Empty(t, p.Parse("hi").ReferralCode)
}

func TestParser_AirtimeBounds(t *testing.T) {
	p := NewParser(DefaultMinAirtime, DefaultMaxAirtime)

	for _, amount := range []int64{50, 51, 100, 1000, 49999, 50000} {
		cmd := p.Parse(fmt.Sprintf("buy %d airtime", amount))
		assert.Equal(t, TypeAirtime, cmd.Type)
		assert.Equal(t, ConfidenceHigh, cmd.Confidence)
		assert.Equal(t, amount, cmd.Amount)
		assert.Empty(t, cmd.Error)
	}

	t.Run("TooLow", func(t *testing.T) {
		cmd := p.Parse("buy 49 airtime")
		assert.Equal(t, TypeAirtime, cmd.Type)
		assert.Equal(t, ConfidenceLow, cmd.Confidence)
		assert.False(t, cmd.HasAmount())
		assert.Equal(t, "Amount too low. Minimum is ₦50", cmd.Error)
	})

	t.Run("TooHigh", func(t *testing.T) {
		cmd := p.Parse("buy 50001 airtime")
		assert.Equal(t, ConfidenceLow, cmd.Confidence)
		assert.Equal(t, "Amount too high. Maximum is ₦50,000", cmd.Error)
	})

	t.Run("Overflow", func(t *testing.T) {
		cmd := p.Parse("buy 99999999999999999999999 airtime")
		assert.Equal(t, ConfidenceLow, cmd.Confidence)
		assert.Contains(t, cmd.Error, "too high")
	})
}

func TestParser_Airtime(t *testing.T) {
	p := NewParser(DefaultMinAirtime, DefaultMaxAirtime)

	t.Run("WithPhone", func(t *testing.T) {
		cmd := p.Parse("buy 1000 airtime for 08012345678")
		assert.Equal(t, int64(1000), cmd.Amount)
		assert.Equal(t, "2348012345678", cmd.Phone)
	})

	t.Run("AirtimeFirst", func(t *testing.T) {
		cmd := p.Parse("airtime 500 to 2348098765432")
		assert.Equal(t, int64(500), cmd.Amount)
		assert.Equal(t, "2348098765432", cmd.Phone)
	})

	t.Run("Recharge", func(t *testing.T) {
		cmd := p.Parse("recharge 200")
		assert.Equal(t, TypeAirtime, cmd.Type)
		assert.Equal(t, int64(200), cmd.Amount)
	})

	t.Run("NoAmount", func(t *testing.T) {
		for _, text := range []string{"airtime", "buy airtime", "top up", "topup"} {
			cmd := p.Parse(text)
			assert.Equal(t, TypeAirtime, cmd.Type, text)
			assert.False(t, cmd.HasAmount(), text)
			assert.Empty(t, cmd.Error, text)
		}
	})

	t.Run("CustomBounds", func(t *testing.T) {
		cmd := NewParser(100, 1000).Parse("buy 1500 airtime")
		assert.Equal(t, "Amount too high. Maximum is ₦1,000", cmd.Error)
	})
}

func TestParser_Data(t *testing.T) {
	p := NewParser(DefaultMinAirtime, DefaultMaxAirtime)

	tests := []struct {
		text    string
		network string
		mb      int
		display string
		phone   string
	}{
		{"1gb mtn", "mtn", 1024, "1.0GB", ""},
		{"500mb glo", "glo", 500, "500.0MB", ""},
		{"buy 1.5gb airtel", "airtel", 1536, "1.5GB", ""},
		{"9mobile 2gb", "9mobile", 2048, "2.0GB", ""},
		{"2gb mtn for 08012345678", "mtn", 2048, "2.0GB", "2348012345678"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd := p.Parse(tt.text)
			assert.Equal(t, TypeData, cmd.Type)
			assert.Equal(t, ConfidenceHigh, cmd.Confidence)
			assert.Equal(t, tt.network, cmd.Network)
			assert.Equal(t, tt.mb, cmd.DataSizeMB)
			assert.Equal(t, tt.display, cmd.DataSizeDisplay)
			assert.Equal(t, tt.phone, cmd.Phone)
		})
	}

	t.Run("Bare", func(t *testing.T) {
		cmd := p.Parse("buy data")
		assert.Equal(t, TypeData, cmd.Type)
		assert.Equal(t, ConfidenceMedium, cmd.Confidence)
		assert.Zero(t, cmd.DataSizeMB)
		assert.Empty(t, cmd.Network)
	})
}

func TestParser_Electricity(t *testing.T) {
	p := NewParser(DefaultMinAirtime, DefaultMaxAirtime)

	t.Run("Bare", func(t *testing.T) {
		for _, text := range []string{"electricity", "light bill", "nepa", "pay light"} {
			cmd := p.Parse(text)
			assert.Equal(t, TypeElectricity, cmd.Type, text)
			assert.Equal(t, ConfidenceMedium, cmd.Confidence, text)
		}
		assert.Equal(t, "ikedc", p.Parse("ikedc").Disco)
	})

	t.Run("WithAmount", func(t *testing.T) {
		cmd := p.Parse("pay 5000 electricity")
		assert.Equal(t, ConfidenceHigh, cmd.Confidence)
		assert.Equal(t, int64(5000), cmd.Amount)
	})

	t.Run("AmountBelowHundredIgnored", func(t *testing.T) {
		cmd := p.Parse("buy 99 light")
		assert.Equal(t, TypeElectricity, cmd.Type)
		assert.Equal(t, ConfidenceMedium, cmd.Confidence)
		assert.False(t, cmd.HasAmount())
		assert.Empty(t, cmd.Error)
	})

	t.Run("MeterAndDisco", func(t *testing.T) {
		cmd := p.Parse("buy 3000 electricity 45012345678 ikedc")
		assert.Equal(t, int64(3000), cmd.Amount)
		assert.Equal(t, "45012345678", cmd.MeterNumber)
		assert.Equal(t, "ikedc", cmd.Disco)
	})
}

func TestParser_Cable(t *testing.T) {
	p := NewParser(DefaultMinAirtime, DefaultMaxAirtime)

	t.Run("Bare", func(t *testing.T) {
		cmd := p.Parse("cable")
		assert.Equal(t, TypeCableTV, cmd.Type)
		assert.Equal(t, ConfidenceMedium, cmd.Confidence)
		assert.Empty(t, cmd.Provider)

		cmd = p.Parse("GOtv")
		assert.Equal(t, ConfidenceMedium, cmd.Confidence)
		assert.Equal(t, "gotv", cmd.Provider)
	})

	t.Run("WithProvider", func(t *testing.T) {
		cmd := p.Parse("renew dstv")
		assert.Equal(t, ConfidenceHigh, cmd.Confidence)
		assert.Equal(t, "dstv", cmd.Provider)
		assert.Empty(t, cmd.Smartcard)
	})

	t.Run("WithSmartcard", func(t *testing.T) {
		cmd := p.Parse("pay gotv 7023456789")
		assert.Equal(t, "gotv", cmd.Provider)
		assert.Equal(t, "7023456789", cmd.Smartcard)
	})
}

func TestType_Valid(t *testing.T) {
	assert.True(t, TypeCableTV.Valid())
	assert.False(t, Type("menu").Valid())
}
