package httpapi

import "github.com/gin-gonic/gin"

// Register wires the dialer API under /v1. Keep this free of business
// logic; handlers delegate to internal services.
func (h Handlers) Register(r gin.IRouter) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		camps := v1.Group("/campaigns")
		{
			camps.POST("", h.CreateCampaign)
			camps.GET("", h.ListCampaigns)
			camps.GET("/:id", h.GetCampaign)
			camps.POST("/:id/contacts", h.ImportContacts)
			camps.GET("/:id/report", h.CampaignReport)
			camps.GET("/:id/audit", h.AuditTrail)

			ctl := camps.Group("/:id/dialer")
			{
				ctl.POST("/start", h.StartDialer)
				ctl.POST("/pause", h.PauseDialer)
				ctl.POST("/resume", h.ResumeDialer)
				ctl.POST("/stop", h.StopDialer)
				ctl.GET("/status", h.DialerStatus)
			}
		}
	}
}
