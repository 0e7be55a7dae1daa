package api

import (
	"github.com/redis/go-redis/v9"

	"github.com/evotehq/evote-backend/config"
	"github.com/evotehq/evote-backend/internal/admins"
	"github.com/evotehq/evote-backend/internal/audit"
	"github.com/evotehq/evote-backend/internal/ballot"
	"github.com/evotehq/evote-backend/internal/election"
	"github.com/evotehq/evote-backend/internal/eligibility"
	"github.com/evotehq/evote-backend/internal/notify"
	"github.com/evotehq/evote-backend/internal/otp"
	"github.com/evotehq/evote-backend/internal/roster"
	"github.com/evotehq/evote-backend/internal/token"
)

// Handlers bundles the HTTP handlers with their collaborators.
type Handlers struct {
	rdb       *redis.Client
	OTP       otp.Store
	Sender    notify.Sender
	Tokens    *token.Issuer
	Gate      *eligibility.Gate
	Roster    *roster.Store
	Elections *election.Store
	Ballots   *ballot.Recorder
	Admins    *admins.Store
	Audit     *audit.Logger
	// ExposeDevOTP surfaces issued codes in responses for local testing.
	// Config-time switch; never enabled in production.
	ExposeDevOTP bool
}

func NewHandlers(rdb *redis.Client) *Handlers {
	rosterStore := roster.NewStore(rdb, config.GetEnv("REF_SECRET", "ref_secret"))
	electionStore := election.NewStore(rdb)
	issuer := token.NewIssuer(rdb)

	var otpStore otp.Store = otp.NewMemoryStore()
	if config.GetEnv("OTP_STORE", "memory") == "redis" {
		otpStore = otp.NewRedisStore(rdb)
	}

	var sender notify.Sender = notify.MaskedSender{}
	if !config.IsProduction() {
		sender = notify.ConsoleSender{}
	}

	return &Handlers{
		rdb:          rdb,
		OTP:          otpStore,
		Sender:       sender,
		Tokens:       issuer,
		Gate:         eligibility.NewGate(rosterStore, electionStore, issuer),
		Roster:       rosterStore,
		Elections:    electionStore,
		Ballots:      ballot.NewRecorder(rdb),
		Admins:       admins.NewStore(rdb),
		Audit:        audit.NewLogger(rdb),
		ExposeDevOTP: !config.IsProduction(),
	}
}
