// Package ofx parses OFX/QFX bank statements into source transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/finsight/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// Statement is one parsed bank or credit card statement. AccountRef is the
// institution's account id; the importer resolves it to a source account,
// so the contained transactions carry no AccountID yet.
type Statement struct {
	AccountRef   string
	Currency     string
	Transactions []model.Transaction
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Mixed-case SEVERITY values (must be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML-style files sometimes drop the closing bracket on a bare tag
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file into per-account statements.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Statement, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var statements []Statement

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			statements = append(statements, Statement{
				AccountRef:   string(stmt.BankAcctFrom.AcctID),
				Currency:     stmt.CurDef.String(),
				Transactions: p.convertList(stmt.BankTranList),
			})
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			statements = append(statements, Statement{
				AccountRef:   string(stmt.CCAcctFrom.AcctID),
				Currency:     stmt.CurDef.String(),
				Transactions: p.convertList(stmt.BankTranList),
			})
		}
	}

	total := 0
	for _, s := range statements {
		total += len(s.Transactions)
	}
	slog.Info("Parsed OFX file",
		"statements", len(statements),
		"transactions", total)

	return statements, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList) []model.Transaction {
	if list == nil {
		return nil
	}

	txns := make([]model.Transaction, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		txns = append(txns, p.convertTransaction(ofxTx))
	}
	return txns
}

// convertTransaction maps one OFX transaction to the source model. OFX
// signs the amount (debits negative); the model keeps amounts positive
// and derives the type from the sign, except transfers which OFX tags
// explicitly.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction) model.Transaction {
	amount := decimal.NewFromBigRat(&ofxTx.TrnAmt.Rat, 2)

	txType := model.TypeIncome
	if amount.IsNegative() {
		txType = model.TypeExpense
		amount = amount.Neg()
	}
	trnType := ofxTx.TrnType.String()
	if trnType == "XFER" {
		txType = model.TypeTransfer
	}

	return model.Transaction{
		ExternalID:    string(ofxTx.FiTID),
		Date:          ofxTx.DtPosted.Time,
		Description:   string(ofxTx.Name),
		MerchantName:  p.extractMerchantName(ofxTx),
		PaymentMethod: strings.ToLower(trnType),
		Type:          txType,
		Amount:        amount,
	}
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// PAYEE, when present, is the cleanest source
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " date stamps
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
