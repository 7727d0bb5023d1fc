package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/aclindsa/ofxgo"
	"github.com/finsight/finsight/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeOFXTransaction(name, memo string) ofxgo.Transaction {
	return ofxgo.Transaction{
		Name: ofxgo.String(name),
		Memo: ofxgo.String(memo),
	}
}

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>POS PURCHASE CORNER CAFE
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>2500.00
<FITID>2024012001
<NAME>PAYROLL DEPOSIT
</STMTTRN>
<STMTTRN>
<TRNTYPE>XFER
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<NAME>TRANSFER TO SAVINGS
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseFileBankStatement(t *testing.T) {
	parser := NewParser()
	statements, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Equal(t, "1234567890", stmt.AccountRef)
	assert.Equal(t, "USD", stmt.Currency)
	require.Len(t, stmt.Transactions, 3)

	expense := stmt.Transactions[0]
	assert.Equal(t, "2024011501", expense.ExternalID)
	assert.Equal(t, model.TypeExpense, expense.Type)
	assert.True(t, expense.Amount.Equal(decimal.RequireFromString("25.50")),
		"amount = %s, want positive 25.50", expense.Amount)
	assert.Equal(t, "CORNER CAFE", expense.MerchantName, "POS prefix should be stripped")
	assert.Equal(t, 2024, expense.Date.Year())

	income := stmt.Transactions[1]
	assert.Equal(t, model.TypeIncome, income.Type)
	assert.True(t, income.Amount.Equal(decimal.RequireFromString("2500")))

	transfer := stmt.Transactions[2]
	assert.Equal(t, model.TypeTransfer, transfer.Type)
	assert.True(t, transfer.Amount.Equal(decimal.RequireFromString("500")),
		"transfer amount should be positive")
	assert.Equal(t, "xfer", transfer.PaymentMethod)
}

func TestParseFileNoAccountIDsYet(t *testing.T) {
	parser := NewParser()
	statements, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	// The importer assigns accounts; the parser must not.
	for _, txn := range statements[0].Transactions {
		assert.Zero(t, txn.AccountID)
		assert.Zero(t, txn.UserID)
	}
}

func TestParseFileInvalidContent(t *testing.T) {
	parser := NewParser()
	_, err := parser.ParseFile(context.Background(), strings.NewReader("this is not an OFX file"))
	require.Error(t, err)
}

func TestPreprocessOFX(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "mixed case severity",
			input: "<SEVERITY>Info</SEVERITY>",
			want:  "<SEVERITY>INFO</SEVERITY>",
		},
		{
			name:  "missing closing bracket",
			input: "<OFX",
			want:  "<OFX>",
		},
		{
			name:  "leading whitespace trimmed",
			input: "\n\n  OFXHEADER:100",
			want:  "OFXHEADER:100",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parser.preprocessOFX(tt.input))
		})
	}
}

func TestExtractMerchantName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		memo string
		want string
	}{
		{"plain name", "CORNER CAFE", "", "CORNER CAFE"},
		{"strips purchase prefix", "DEBIT CARD PURCHASE GROCERY MART", "", "GROCERY MART"},
		{"generic name falls back to memo", "DEBIT", "ACME UTILITIES", "ACME UTILITIES"},
		{"strips leading date stamp", "01/15 HARDWARE STORE", "", "HARDWARE STORE"},
	}

	parser := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := makeOFXTransaction(tt.in, tt.memo)
			assert.Equal(t, tt.want, parser.extractMerchantName(txn))
		})
	}
}
