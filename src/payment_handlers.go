package main

import (
	"falcontour/src/services"
	"falcontour/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func paymentHandlers(g *gin.RouterGroup, app *services.App) {
	payments := g.Group("/payments/:slug")
	payments.
		POST("/checkout", func(ctx *gin.Context) {
			var body types.CheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			amount, err := services.ParseAmount(body.Amount)
			if err != nil {
				abortWithError(ctx, http.StatusBadRequest, err)
				return
			}
			id := ctx.GetUint("id")
			session, err := app.Payments.InitiateParticipantPayment(ctx, ctx.Param("slug"), ctx.GetString("email"), &id, amount, body.HeadsCovered)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"session_id": session.ID, "url": session.URL})
		}).
		POST("/final", func(ctx *gin.Context) {
			id := ctx.GetUint("id")
			session, err := app.Payments.InitiateHostFinalPayment(ctx, ctx.Param("slug"), ctx.GetString("email"), &id)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"session_id": session.ID, "url": session.URL})
		})
}
