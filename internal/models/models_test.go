package models

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerateReferralCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{8}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := GenerateReferralCode()
		assert.True(t, pattern.MatchString(code), "code %q should be 8 uppercase hex chars", code)
		seen[code] = struct{}{}
	}

	// 100 draws from a 32-bit space should not all collide
	assert.Greater(t, len(seen), 90)
}

func TestIsValidBroker(t *testing.T) {
	assert.True(t, IsValidBroker(BrokerExness))
	assert.True(t, IsValidBroker(BrokerBybit))
	assert.True(t, IsValidBroker(BrokerBinance))
	assert.False(t, IsValidBroker("etrade"))
	assert.False(t, IsValidBroker(""))
	assert.False(t, IsValidBroker("Exness"))
}

func TestIsValidEarningStatus(t *testing.T) {
	assert.True(t, IsValidEarningStatus(EarningStatusPending))
	assert.True(t, IsValidEarningStatus(EarningStatusPaid))
	assert.True(t, IsValidEarningStatus(EarningStatusCancelled))
	assert.False(t, IsValidEarningStatus("refunded"))
	assert.False(t, IsValidEarningStatus(""))
}

func TestUpsertUserParamsValidate(t *testing.T) {
	valid := &UpsertUserParams{ID: "user-1", Email: "u@example.com"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&UpsertUserParams{Email: "u@example.com"}).Validate())
	assert.Error(t, (&UpsertUserParams{ID: "user-1"}).Validate())
}

func TestConnectTradingAccountRequestValidate(t *testing.T) {
	valid := &ConnectTradingAccountRequest{Broker: BrokerExness, AccountID: "12345"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&ConnectTradingAccountRequest{AccountID: "12345"}).Validate())
	assert.Error(t, (&ConnectTradingAccountRequest{Broker: "robinhood", AccountID: "12345"}).Validate())
	assert.Error(t, (&ConnectTradingAccountRequest{Broker: BrokerExness}).Validate())
}

func TestUpdateBalanceRequestValidate(t *testing.T) {
	balance := "1000.00"
	pnl := "-12.50"

	assert.NoError(t, (&UpdateBalanceRequest{Balance: &balance, DailyPnL: &pnl}).Validate())
	assert.Error(t, (&UpdateBalanceRequest{Balance: &balance}).Validate())
	assert.Error(t, (&UpdateBalanceRequest{DailyPnL: &pnl}).Validate())
	assert.Error(t, (&UpdateBalanceRequest{}).Validate())
}

func TestConnectCopierRequestValidate(t *testing.T) {
	valid := &ConnectCopierRequest{TradingAccountID: uuid.New(), MasterAccountID: "MASTER-1"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&ConnectCopierRequest{MasterAccountID: "MASTER-1"}).Validate())
	assert.Error(t, (&ConnectCopierRequest{TradingAccountID: uuid.New()}).Validate())
}

func TestUpdateCopierStatusRequestValidate(t *testing.T) {
	active := true
	inactive := false

	assert.NoError(t, (&UpdateCopierStatusRequest{IsActive: &active}).Validate())
	assert.NoError(t, (&UpdateCopierStatusRequest{IsActive: &inactive}).Validate())
	assert.Error(t, (&UpdateCopierStatusRequest{}).Validate())
}

func TestCreateReferralEarningRequestValidate(t *testing.T) {
	valid := &CreateReferralEarningRequest{
		ReferredUserID:  "user-2",
		Amount:          "25.00",
		Broker:          BrokerBybit,
		TransactionType: "trading_fee",
	}
	assert.NoError(t, valid.Validate())

	paid := EarningStatusPaid
	valid.Status = &paid
	assert.NoError(t, valid.Validate())

	bad := "reversed"
	valid.Status = &bad
	assert.Error(t, valid.Validate())

	assert.Error(t, (&CreateReferralEarningRequest{Amount: "25.00", Broker: BrokerBybit, TransactionType: "trading_fee"}).Validate())
	assert.Error(t, (&CreateReferralEarningRequest{ReferredUserID: "user-2", Broker: BrokerBybit, TransactionType: "trading_fee"}).Validate())
	assert.Error(t, (&CreateReferralEarningRequest{ReferredUserID: "user-2", Amount: "25.00", Broker: "ftx", TransactionType: "trading_fee"}).Validate())
	assert.Error(t, (&CreateReferralEarningRequest{ReferredUserID: "user-2", Amount: "25.00", Broker: BrokerBybit}).Validate())
}

func TestCreateReferralLinkRequestValidate(t *testing.T) {
	valid := &CreateReferralLinkRequest{Broker: BrokerBinance, ReferralURL: "https://accounts.binance.com/register?ref=ABCD1234"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&CreateReferralLinkRequest{Broker: "ftx", ReferralURL: "https://example.com"}).Validate())
	assert.Error(t, (&CreateReferralLinkRequest{Broker: BrokerBinance}).Validate())
}
