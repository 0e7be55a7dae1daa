package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evotehq/evote-backend/internal/middleware"
)

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
	})

	auth := r.Group("/api/auth")
	auth.Use(middleware.RateLimit(h.rdb, "auth", 5, 15*time.Minute))
	{
		auth.POST("/admin/register", middleware.Audit(h.Audit, "admin_register"), h.AdminRegisterHandler)
		auth.POST("/admin/login", middleware.Audit(h.Audit, "admin_login"), h.AdminLoginHandler)
	}

	voter := r.Group("/api/voter")
	{
		voter.GET("/elections", h.ActiveElectionsHandler)
		voter.GET("/elections/:id", h.ElectionDetailsHandler)
		voter.GET("/elections/:id/results", h.PublicResultsHandler)
		voter.GET("/results-feed", h.ResultsFeedHandler)
		voter.POST("/eligible-elections", h.EligibleElectionsHandler)
		voter.GET("/me", middleware.VoterAuth(), h.MeHandler)

		otpLimited := voter.Group("")
		otpLimited.Use(middleware.RateLimit(h.rdb, "otp", 3, 5*time.Minute))
		{
			otpLimited.POST("/identify", middleware.Audit(h.Audit, "voter_identify"), h.IdentifyHandler)
			otpLimited.POST("/verify-otp", middleware.Audit(h.Audit, "voter_verify_otp"), h.VerifyOTPHandler)
			otpLimited.POST("/login-start", h.LoginStartHandler)
			otpLimited.POST("/login-verify", h.LoginVerifyHandler)
		}

		// Regeneration carries its own window, independent of the OTP
		// limiter, so a locked-out voter cannot also be starved of it.
		voter.POST("/regenerate-otp",
			middleware.RateLimit(h.rdb, "regen", 3, 5*time.Minute), h.RegenerateOTPHandler)
	}

	vote := r.Group("/api/vote")
	vote.Use(middleware.RateLimit(h.rdb, "vote", 3, time.Minute))
	{
		vote.POST("/:electionId/cast", middleware.Audit(h.Audit, "cast_vote"), h.CastHandler)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminAuth())
	{
		admin.GET("/elections", h.ListElectionsHandler)
		admin.POST("/elections", middleware.Audit(h.Audit, "create_election"), h.CreateElectionHandler)
		admin.GET("/elections/:id", h.GetElectionHandler)
		admin.PUT("/elections/:id", middleware.Audit(h.Audit, "update_election"), h.UpdateElectionHandler)
		admin.POST("/elections/:id/start", middleware.Audit(h.Audit, "start_election"), h.StartElectionHandler)
		admin.POST("/elections/:id/end", middleware.Audit(h.Audit, "end_election"), h.EndElectionHandler)
		admin.GET("/elections/:id/results", h.AdminResultsHandler)
		admin.GET("/elections/:id/voters", h.ElectionVotersHandler)
		admin.GET("/dashboard", h.DashboardHandler)
		admin.POST("/voters/upload", middleware.Audit(h.Audit, "roster_import"), h.UploadVotersHandler)
		admin.POST("/voters/add", middleware.Audit(h.Audit, "add_voter"), h.AddVoterHandler)
		admin.GET("/voters", h.ListVotersHandler)
		admin.PUT("/voters/:voterId/assignments", middleware.Audit(h.Audit, "update_assignments"), h.UpdateAssignmentsHandler)
		admin.GET("/audit-logs", h.AuditLogsHandler)
	}
}
