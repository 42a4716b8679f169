package repositories

import (
	"gorm.io/gorm"
)

// Repositories contains all repository instances
type Repositories struct {
	User            UserRepository
	TradingAccount  TradingAccountRepository
	ReferralEarning ReferralEarningRepository
	Copier          CopierConnectionRepository
	ReferralLink    ReferralLinkRepository
}

// NewRepositories creates a repository container backed by the relational
// store.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:            NewUserRepository(db),
		TradingAccount:  NewTradingAccountRepository(db),
		ReferralEarning: NewReferralEarningRepository(db),
		Copier:          NewCopierConnectionRepository(db),
		ReferralLink:    NewReferralLinkRepository(db),
	}
}
