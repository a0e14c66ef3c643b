package app

import "serotonyl.ru/invest-platform/internal/db/postgres"

// migrations — SQL-миграции встроены в код для упрощения деплоя.
// Все таблицы пользователя ссылаются на users с ON DELETE CASCADE.
var migrations = []postgres.Migration{
	{Version: 1, Name: "users", SQL: migration001Users},
	{Version: 2, Name: "transactions", SQL: migration002Transactions},
	{Version: 3, Name: "investments", SQL: migration003Investments},
	{Version: 4, Name: "withdrawals", SQL: migration004Withdrawals},
	{Version: 5, Name: "notifications", SQL: migration005Notifications},
	{Version: 6, Name: "kyc", SQL: migration006KYC},
	{Version: 7, Name: "referrals", SQL: migration007Referrals},
	{Version: 8, Name: "loans", SQL: migration008Loans},
	{Version: 9, Name: "admin", SQL: migration009Admin},
	{Version: 10, Name: "withdrawal_split", SQL: migration010WithdrawalSplit},
}

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    idnum BIGINT NOT NULL CONSTRAINT users_idnum_key UNIQUE,
    email VARCHAR(255) NOT NULL CONSTRAINT users_email_key UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    name VARCHAR(255) NOT NULL DEFAULT '',
    username VARCHAR(255) NOT NULL DEFAULT '',
    phone VARCHAR(64) NOT NULL DEFAULT '',
    country VARCHAR(64) NOT NULL DEFAULT '',
    balance NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
    bonus NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (bonus >= 0),
    kyc_status VARCHAR(16) NOT NULL DEFAULT 'pending',
    referral_code VARCHAR(16) CONSTRAINT users_referral_code_key UNIQUE,
    referral_code_expires_at TIMESTAMPTZ,
    referred_by_code VARCHAR(16),
    referred_by_idnum BIGINT,
    referral_level INTEGER NOT NULL DEFAULT 0,
    referral_count INTEGER NOT NULL DEFAULT 0,
    referral_bonus_total NUMERIC(18,2) NOT NULL DEFAULT 0,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    email_confirmed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC);
`

var migration002Transactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    bucket VARCHAR(16) NOT NULL,
    amount NUMERIC(18,2) NOT NULL,
    transaction_type VARCHAR(50) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    reference_id VARCHAR(64),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at DESC);
`

var migration003Investments = `
CREATE TABLE IF NOT EXISTS investments (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    idnum BIGINT NOT NULL,
    plan VARCHAR(64) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'Pending',
    capital NUMERIC(18,2) NOT NULL CHECK (capital > 0),
    daily_rate NUMERIC(12,8) NOT NULL DEFAULT 0,
    roi NUMERIC(18,2) NOT NULL DEFAULT 0,
    credited_roi NUMERIC(18,2) NOT NULL DEFAULT 0,
    bonus NUMERIC(18,2) NOT NULL DEFAULT 0,
    credited_bonus NUMERIC(18,2) NOT NULL DEFAULT 0,
    duration_days INTEGER NOT NULL DEFAULT 0,
    payment_option VARCHAR(64) NOT NULL DEFAULT 'Bitcoin',
    plan_fallback BOOLEAN NOT NULL DEFAULT FALSE,
    approved_at TIMESTAMPTZ,
    approved_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT investments_status_check CHECK (status IN ('Pending', 'Active', 'Completed', 'Expired')),
    CONSTRAINT investments_credited_roi_check CHECK (credited_roi <= roi),
    CONSTRAINT investments_credited_bonus_check CHECK (credited_bonus <= bonus)
);
CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_investments_status ON investments(status);

CREATE TABLE IF NOT EXISTS accrual_runs (
    id BIGSERIAL PRIMARY KEY,
    trigger VARCHAR(16) NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    processed INTEGER NOT NULL DEFAULT 0,
    updated INTEGER NOT NULL DEFAULT 0,
    completed INTEGER NOT NULL DEFAULT 0,
    expired INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_accrual_runs_started ON accrual_runs(started_at DESC);
`

var migration004Withdrawals = `
CREATE TABLE IF NOT EXISTS withdrawals (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    idnum BIGINT NOT NULL,
    amount NUMERIC(18,2) NOT NULL CHECK (amount > 0),
    status VARCHAR(16) NOT NULL DEFAULT 'Pending',
    payment_option VARCHAR(64) NOT NULL,
    wallet_address TEXT NOT NULL DEFAULT '',
    bank_name TEXT NOT NULL DEFAULT '',
    bank_account_number TEXT NOT NULL DEFAULT '',
    bank_account_name TEXT NOT NULL DEFAULT '',
    bank_routing_swift TEXT NOT NULL DEFAULT '',
    processed_at TIMESTAMPTZ,
    processed_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawals(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status);
`

var migration005Notifications = `
CREATE TABLE IF NOT EXISTS notifications (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    idnum BIGINT NOT NULL,
    title VARCHAR(255) NOT NULL,
    message TEXT NOT NULL,
    type VARCHAR(32) NOT NULL DEFAULT 'info',
    status VARCHAR(16) NOT NULL DEFAULT 'unseen',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unseen ON notifications(user_id) WHERE status = 'unseen';
`

var migration006KYC = `
CREATE TABLE IF NOT EXISTS kyc (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    full_name VARCHAR(255) NOT NULL,
    document_type VARCHAR(64) NOT NULL,
    document_number VARCHAR(128) NOT NULL,
    document_key TEXT NOT NULL DEFAULT '',
    status VARCHAR(16) NOT NULL DEFAULT 'submitted',
    review_note TEXT NOT NULL DEFAULT '',
    reviewed_by UUID,
    reviewed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_kyc_status ON kyc(status, created_at DESC);
`

var migration007Referrals = `
CREATE TABLE IF NOT EXISTS referrals (
    id BIGSERIAL PRIMARY KEY,
    referrer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    referred_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    code VARCHAR(16) NOT NULL,
    level INTEGER NOT NULL CHECK (level BETWEEN 1 AND 3),
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT referrals_referred_id_key UNIQUE (referred_id)
);
CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals(referrer_id, created_at DESC);

CREATE TABLE IF NOT EXISTS referral_rewards (
    id BIGSERIAL PRIMARY KEY,
    referral_id BIGINT NOT NULL REFERENCES referrals(id) ON DELETE CASCADE,
    referrer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    investment_id UUID REFERENCES investments(id) ON DELETE SET NULL,
    reward_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
    bonus_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    paid_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_referral_rewards_referrer ON referral_rewards(referrer_id);
CREATE INDEX IF NOT EXISTS idx_referral_rewards_status ON referral_rewards(status, created_at DESC);
`

var migration008Loans = `
CREATE TABLE IF NOT EXISTS loans (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    amount NUMERIC(18,2) NOT NULL CHECK (amount > 0),
    bonus NUMERIC(18,2) NOT NULL DEFAULT 0,
    purpose TEXT NOT NULL DEFAULT '',
    status VARCHAR(16) NOT NULL DEFAULT 'Pending',
    processed_by UUID,
    processed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id, created_at DESC);
`

var migration009Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    session_token VARCHAR(255) UNIQUE NOT NULL,
    authenticated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts(user_id, attempt_time DESC);
`

// Старые выводы списывались только с balance.
var migration010WithdrawalSplit = `
ALTER TABLE withdrawals ADD COLUMN IF NOT EXISTS from_balance NUMERIC(18,2);
ALTER TABLE withdrawals ADD COLUMN IF NOT EXISTS from_bonus NUMERIC(18,2) NOT NULL DEFAULT 0;
UPDATE withdrawals SET from_balance = amount WHERE from_balance IS NULL;
ALTER TABLE withdrawals ALTER COLUMN from_balance SET DEFAULT 0;
ALTER TABLE withdrawals ALTER COLUMN from_balance SET NOT NULL;
`
