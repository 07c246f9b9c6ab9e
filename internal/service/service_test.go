package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/utils"
)

type fakePayments struct {
	customerID string
	updates    []CustomerUpdate
	checkouts  []CheckoutRequest
	completed  CheckoutCompleted
	parseErr   error
}

func (f *fakePayments) CreateCustomer(_ context.Context, _, _ string) (string, error) {
	return f.customerID, nil
}

func (f *fakePayments) UpdateCustomer(_ context.Context, _ string, upd CustomerUpdate) error {
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (string, error) {
	f.checkouts = append(f.checkouts, req)
	return "https://checkout.stripe.test/c/1", nil
}

func (f *fakePayments) CreatePortalSession(_ context.Context, _ string) (string, error) {
	return "https://billing.stripe.test/p/1", nil
}

func (f *fakePayments) ParseCheckoutCompleted(_ []byte, _ string) (CheckoutCompleted, error) {
	return f.completed, f.parseErr
}

type fakeMail struct{ sent []string }

func (f *fakeMail) Welcome(_ context.Context, to, _, _, _ string) error {
	f.sent = append(f.sent, "welcome:"+to)
	return nil
}

func (f *fakeMail) OTP(_ context.Context, to, _ string) error {
	f.sent = append(f.sent, "otp:"+to)
	return nil
}

func (f *fakeMail) Password(_ context.Context, to, _ string) error {
	f.sent = append(f.sent, "password:"+to)
	return nil
}

var userCols = []string{"id", "first_name", "last_name", "email", "stripe_customer_id", "google_user_id",
	"password", "credits", "is_2fa_enabled", "is_dark_mode", "is_active", "created_at", "updated_at"}

func userRow(id, credits string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(userCols).
		AddRow(id, "Jane", "Doe", "jane@example.com", "cus_1", nil, "hash", credits, false, true, true, now, now)
}

func newDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "mysql"), mock
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func newLedger(db *sqlx.DB, p PaymentProvider) *LedgerService {
	rates := model.RateTable{{
		LowerLimit:    decimal.NewFromInt(5),
		UpperLimit:    decimal.NewFromInt(10000),
		Rate:          decimal.NewFromInt(100),
		StripePriceID: "price_1",
	}}
	return NewLedgerService(db, repository.NewUserRepo(db), repository.NewTransactionRepo(db), p, rates, quietLogger())
}

func TestUpdateCredits_CreditIsBalanceConsistent(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM users WHERE id=\\? LIMIT 1 FOR UPDATE").
		WithArgs("user_1").WillReturnRows(userRow("user_1", "100.00"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET credits=?, updated_at=? WHERE id=?")).
		WithArgs("5100", sqlmock.AnyArg(), "user_1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	credit := model.Credit
	pi := "pi_1"
	u, entry, err := newLedger(db, &fakePayments{}).UpdateCredits(context.Background(), "user_1", CreditUpdate{
		Amount: decimal.NewFromInt(5000), Type: &credit, PaymentIntent: &pi, Description: "User bought 5000 credits for $50.",
	})
	require.NoError(t, err)
	assert.True(t, u.Credits.Equal(decimal.NewFromInt(5100)))
	assert.Equal(t, model.Credit, entry.Type)
	assert.True(t, entry.ValueInCredits.Equal(decimal.NewFromInt(5000)))
	assert.True(t, entry.ValueInFiat.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "pi_1", *entry.StripePaymentIntent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCredits_TargetBalanceDescribesChange(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("user_1").WillReturnRows(userRow("user_1", "100.00"))
	mock.ExpectExec("UPDATE users SET credits").WithArgs("40", sqlmock.AnyArg(), "user_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, entry, err := newLedger(db, &fakePayments{}).UpdateCredits(context.Background(), "user_1", CreditUpdate{Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)
	assert.Equal(t, "40", u.Credits.String())
	assert.Equal(t, model.Debit, entry.Type)
	assert.Equal(t, "60", entry.ValueInCredits.String())
	assert.Equal(t, "0.6", entry.ValueInFiat.String())
	assert.Equal(t, "Admin updated credits from 100.00 to 40.00.", entry.Description)
}

func TestUpdateCredits_DebitBelowZero(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("user_1").WillReturnRows(userRow("user_1", "10.00"))
	mock.ExpectRollback()

	debit := model.Debit
	_, _, err := newLedger(db, &fakePayments{}).UpdateCredits(context.Background(), "user_1", CreditUpdate{
		Amount: decimal.NewFromInt(11), Type: &debit,
	})
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCredits_UnknownUser(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("user_x").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := newLedger(db, &fakePayments{}).UpdateCredits(context.Background(), "user_x", CreditUpdate{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSettle_DuplicatePaymentIntentRollsBack(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("user_1").WillReturnRows(userRow("user_1", "5100.00"))
	mock.ExpectExec("UPDATE users SET credits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'pi_1'"})
	mock.ExpectRollback()

	pay := &fakePayments{completed: CheckoutCompleted{
		UserID: "user_1", PaymentIntent: "pi_1",
		ValueInCredits: decimal.NewFromInt(5000), ValueInFiat: decimal.NewFromInt(50),
	}}
	err := newLedger(db, pay).Settle(context.Background(), []byte("{}"), "sig")
	assert.ErrorIs(t, err, ErrAlreadySettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettle_RejectedEvent(t *testing.T) {
	db, mock := newDB(t)
	pay := &fakePayments{parseErr: ErrWrongEvent}
	err := newLedger(db, pay).Settle(context.Background(), []byte("{}"), "sig")
	assert.ErrorIs(t, err, ErrWrongEvent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuy(t *testing.T) {
	db, _ := newDB(t)
	pay := &fakePayments{}
	ledger := newLedger(db, pay)
	u := model.User{ID: "user_1", StripeCustomerID: "cus_1"}

	t.Run("inside tier", func(t *testing.T) {
		co, err := ledger.Buy(context.Background(), u, decimal.NewFromInt(50), "dashboard")
		require.NoError(t, err)
		assert.Equal(t, "5000", co.ValueInCredits.String())
		assert.Equal(t, "dashboard", co.ReturnPath)
		require.Len(t, pay.checkouts, 1)
		assert.Equal(t, "price_1", pay.checkouts[0].PriceID)
		assert.Equal(t, "cus_1", pay.checkouts[0].CustomerID)
	})

	t.Run("outside tiers", func(t *testing.T) {
		_, err := ledger.Buy(context.Background(), u, decimal.NewFromInt(1), "dashboard")
		assert.ErrorIs(t, err, ErrRateNotFound)
	})
}

func TestOTPCreate_ReplacesPreviousCode(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM otps WHERE user_id=? AND type=?")).
		WithArgs("user_1", "ACTIVATION").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO otps").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewOTPService(db, repository.NewOTPRepo(db), 10*time.Minute)
	otp, err := svc.Create(context.Background(), "user_1", model.OTPActivation)
	require.NoError(t, err)
	assert.Len(t, otp.Code, 6)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), otp.ExpiresAt, 5*time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPCreate_InvalidPurpose(t *testing.T) {
	db, _ := newDB(t)
	svc := NewOTPService(db, repository.NewOTPRepo(db), time.Minute)
	_, err := svc.Create(context.Background(), "user_1", model.OTPPurpose("RESET"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func newSessions(db *sqlx.DB) *SessionService {
	return NewSessionService(repository.NewSessionRepo(db), repository.NewUserRepo(db), "secret", "crazi_couser_", time.Hour)
}

var sessionCols = []string{"id", "user_id", "token", "expires_at", "created_at", "updated_at"}

func TestSessionValidate(t *testing.T) {
	tok, err := utils.NewSessionToken("secret", "crazi_couser_", "user_1", "user", time.Hour)
	require.NoError(t, err)

	t.Run("live session", func(t *testing.T) {
		db, mock := newDB(t)
		now := time.Now().UTC()
		mock.ExpectQuery("SELECT .* FROM sessions WHERE token=\\?").WithArgs(tok.Token).
			WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("session_1", "user_1", tok.Token, tok.Exp, now, now))
		mock.ExpectQuery("SELECT .* FROM users WHERE id=\\?").WithArgs("user_1").
			WillReturnRows(userRow("user_1", "100.00"))

		u, err := newSessions(db).Validate(context.Background(), tok.Token)
		require.NoError(t, err)
		assert.Equal(t, "user_1", u.ID)
	})

	t.Run("deleted session", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectQuery("SELECT .* FROM sessions").WithArgs(tok.Token).WillReturnError(sql.ErrNoRows)

		_, err := newSessions(db).Validate(context.Background(), tok.Token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("expired session is purged", func(t *testing.T) {
		db, mock := newDB(t)
		past := time.Now().Add(-time.Minute).UTC()
		mock.ExpectQuery("SELECT .* FROM sessions").WithArgs(tok.Token).
			WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("session_1", "user_1", tok.Token, past, past, past))
		mock.ExpectExec("DELETE FROM sessions WHERE id=\\?").WithArgs("session_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := newSessions(db).Validate(context.Background(), tok.Token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong prefix", func(t *testing.T) {
		db, _ := newDB(t)
		_, err := newSessions(db).Validate(context.Background(), "other_"+tok.Token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE email=\\?").WithArgs("jane@example.com").
		WillReturnRows(userRow("user_1", "100.00"))

	svc := NewUserService(db, repository.NewUserRepo(db), repository.NewTransactionRepo(db), &fakePayments{}, 4, quietLogger())
	_, err := svc.Create(context.Background(), NewUser{Email: "Jane@Example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestUserCreate_SignupBonus(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE email=\\?").WithArgs("a@x.com").WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), nil, "Free credits on signup.", "100", "1", "CREDIT", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pay := &fakePayments{customerID: "cus_9"}
	svc := NewUserService(db, repository.NewUserRepo(db), repository.NewTransactionRepo(db), pay, 4, quietLogger())
	first, last := "jOHN", "van  doe"
	u, err := svc.Create(context.Background(), NewUser{FirstName: &first, LastName: &last, Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)

	assert.Equal(t, "John", *u.FirstName)
	assert.Equal(t, "Van  Doe", *u.LastName)
	assert.Equal(t, "cus_9", u.StripeCustomerID)
	assert.False(t, u.IsActive)
	assert.True(t, utils.VerifyPassword(u.Password, "password1"))
	require.Len(t, pay.updates, 1)
	assert.Equal(t, u.ID, pay.updates[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newAuth(db *sqlx.DB, mail Mailer) *AuthService {
	users := repository.NewUserRepo(db)
	txs := repository.NewTransactionRepo(db)
	return &AuthService{
		DB:         db,
		UserRepo:   users,
		Users:      NewUserService(db, users, txs, &fakePayments{}, 4, quietLogger()),
		Sessions:   newSessions(db),
		OTPs:       NewOTPService(db, repository.NewOTPRepo(db), time.Minute),
		Mail:       mail,
		BcryptCost: 4,
		Log:        quietLogger(),
	}
}

func TestActivate(t *testing.T) {
	t.Run("valid code", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectQuery("SELECT .* FROM users WHERE email=\\?").WithArgs("jane@example.com").
			WillReturnRows(userRow("user_1", "100.00"))
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM otps WHERE user_id=\\? AND type=\\? AND code=\\?").
			WithArgs("user_1", "ACTIVATION", "123456", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active=?, updated_at=? WHERE id=?")).
			WithArgs(true, sqlmock.AnyArg(), "user_1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		u, err := newAuth(db, &fakeMail{}).Activate(context.Background(), "jane@example.com", "123456")
		require.NoError(t, err)
		assert.True(t, u.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("spent code", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectQuery("SELECT .* FROM users").WillReturnRows(userRow("user_1", "100.00"))
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM otps").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := newAuth(db, &fakeMail{}).Activate(context.Background(), "jane@example.com", "123456")
		assert.ErrorIs(t, err, ErrInvalidOTP)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVerifyLogin2FA_FailureDropsSession(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM otps").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectExec("DELETE FROM sessions WHERE token=\\?").WithArgs("crazi_couser_tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := newAuth(db, &fakeMail{}).VerifyLogin2FA(context.Background(), model.User{ID: "user_1"}, "crazi_couser_tok", "000000")
	assert.ErrorIs(t, err, ErrInvalidOTP)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyLogin2FA_EmptyCode(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 1))

	err := newAuth(db, &fakeMail{}).VerifyLogin2FA(context.Background(), model.User{ID: "user_1"}, "crazi_couser_tok", "")
	assert.True(t, errors.Is(err, ErrInvalidOTP))
}

func TestChangePassword_KeepsCurrentSession(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM otps").
		WithArgs("user_1", "CHANGE_PASSWORD", "654321", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password=?, updated_at=? WHERE id=?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE user_id=? AND token<>?")).
		WithArgs("user_1", "crazi_couser_keep").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := newAuth(db, &fakeMail{}).ChangePassword(context.Background(), model.User{ID: "user_1"}, "crazi_couser_keep", "new-password", "654321")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendOTP_MailsCode(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE email=\\?").WillReturnRows(userRow("user_1", "100.00"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM otps").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO otps").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mail := &fakeMail{}
	require.NoError(t, newAuth(db, mail).SendOTP(context.Background(), "jane@example.com", model.OTPTwoFactorAuth))
	assert.Equal(t, []string{"otp:jane@example.com"}, mail.sent)
}

func TestPurgeExpired(t *testing.T) {
	db, mock := newDB(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at<=?")).
		WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))

	svc := newSessions(db)
	svc.Now = func() time.Time { return now }
	log, hook := test.NewNullLogger()
	svc.PurgeExpired(context.Background(), log)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, int64(3), hook.LastEntry().Data["removed"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakeIdentity struct{ ident ExternalIdentity }

func (f fakeIdentity) Verify(_ context.Context, _ string) (ExternalIdentity, error) {
	return f.ident, nil
}

func TestGoogleLoginRequiresVerifiedEmail(t *testing.T) {
	db, mock := newDB(t)
	svc := newAuth(db, &fakeMail{})
	svc.Identity = fakeIdentity{ident: ExternalIdentity{Subject: "g-1", Email: "jane@example.com", EmailVerified: false}}

	_, _, _, err := svc.GoogleLogin(context.Background(), "id-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	// No lookup, link or insert may happen for an unverified address.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoogleLoginLinksVerifiedEmail(t *testing.T) {
	db, mock := newDB(t)
	now := time.Now().UTC()
	unlinked := sqlmock.NewRows(userCols).
		AddRow("user_1", "Jane", "Doe", "jane@example.com", "cus_1", nil, "hash", "100", false, false, false, now, now)
	linked := sqlmock.NewRows(userCols).
		AddRow("user_1", "Jane", "Doe", "jane@example.com", "cus_1", "g-1", "hash", "100", false, false, true, now, now)
	mock.ExpectQuery("SELECT .* FROM users WHERE email=\\?").WithArgs("jane@example.com").WillReturnRows(unlinked)
	mock.ExpectQuery("SELECT .* FROM users WHERE id=\\?").WithArgs("user_1").WillReturnRows(userRow("user_1", "100"))
	mock.ExpectExec("UPDATE users SET google_user_id=\\?, is_active=\\?, updated_at=\\? WHERE id=\\?").
		WithArgs("g-1", true, sqlmock.AnyArg(), "user_1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM users WHERE id=\\?").WithArgs("user_1").WillReturnRows(linked)
	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(0, 1))

	svc := newAuth(db, &fakeMail{})
	svc.Identity = fakeIdentity{ident: ExternalIdentity{Subject: "g-1", Email: "jane@example.com", EmailVerified: true}}

	u, sess, created, err := svc.GoogleLogin(context.Background(), "id-token")
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, u.IsActive)
	require.NotNil(t, u.GoogleUserID)
	assert.Equal(t, "g-1", *u.GoogleUserID)
	assert.NotEmpty(t, sess.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}
