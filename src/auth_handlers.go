package main

import (
	"falcontour/src/controllers"
	"falcontour/src/middlewares"
	"falcontour/src/services"
	"falcontour/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func publicRoutes(g *gin.Engine, app *services.App) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.GET("/shared/:slug", func(ctx *gin.Context) {
		var params types.SlugRequestParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		event, err := app.Lifecycle.SharedEvent(ctx, params.Slug)
		if err != nil {
			abortWithError(ctx, errorStatus(err), err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": event})
	})
	return apiv1
}

func guestAuthRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	guest := apiv1.Group("/auth")
	guest.
		POST("/login", func(ctx *gin.Context) {
			result, status, err := controllers.AuthLogin(ctx)
			if err != nil {
				log.Printf("[AuthLogin] error: %s\n", err.Error())
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, result)
		}).
		POST("/register/:token", func(ctx *gin.Context) {
			result, status, err := controllers.AuthRegister(ctx)
			if err != nil {
				log.Printf("[AuthRegister] error: %s\n", err.Error())
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusCreated, result)
		})

	oauth := guest.Group("/oauth")
	oauth.Use(middlewares.VerifyIdToken)
	oauth.
		POST("/login", func(ctx *gin.Context) {
			result, status, err := controllers.AuthOAuthLogin(ctx)
			if err != nil {
				log.Printf("[AuthOAuthLogin] error: %s\n", err.Error())
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, result)
		}).
		POST("/register/:token", func(ctx *gin.Context) {
			result, status, err := controllers.AuthOAuthRegister(ctx)
			if err != nil {
				log.Printf("[AuthOAuthRegister] error: %s\n", err.Error())
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusCreated, result)
		})

	otp := apiv1.Group("/otp")
	otp.
		POST("/request", func(ctx *gin.Context) {
			status, err := controllers.OTPRequest(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "OTP sent"})
		}).
		POST("/verify", func(ctx *gin.Context) {
			token, status, err := controllers.OTPVerify(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"token": token})
		}).
		POST("/reset", func(ctx *gin.Context) {
			status, err := controllers.OTPReset(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "Password updated"})
		})
	return guest
}

func userHandlers(g *gin.RouterGroup) {
	users := g.Group("/users")
	users.
		GET("/me", func(ctx *gin.Context) {
			user, status, err := controllers.AccountsMe(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		}).
		POST("/details", func(ctx *gin.Context) {
			user, status, err := controllers.AccountsDetails(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		}).
		POST("/reset-password", func(ctx *gin.Context) {
			status, err := controllers.AccountsResetPassword(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "Password updated"})
		}).
		GET("/notifications", func(ctx *gin.Context) {
			rows, total, status, err := controllers.AccountsNotifications(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": rows, "count": total})
		}).
		POST("/notifications/read", func(ctx *gin.Context) {
			updated, status, err := controllers.AccountsMarkRead(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": updated})
		})
}
