package main

import (
	"falcontour/src/services"
	"falcontour/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type mediaQuery struct {
	types.PageQuery
	UserID *uint `form:"user_id"`
}

func eventHandlers(g *gin.RouterGroup, app *services.App) {
	g.
		GET("/events", func(ctx *gin.Context) {
			var query types.EventQueryFilters
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			events, total, err := app.Lifecycle.GetEvents(ctx, viewer(ctx), query)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": events, "count": total})
		}).
		GET("/events/:slug", func(ctx *gin.Context) {
			var params types.SlugRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, err := app.Lifecycle.GetEvent(ctx, viewer(ctx), params.Slug)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": event})
		}).
		POST("/events/join/:token", func(ctx *gin.Context) {
			var params types.TokenRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			id := ctx.GetUint("id")
			participant, err := app.Invites.RedeemInvite(ctx, params.Token, ctx.GetString("email"), &id)
			if err != nil {
				log.Printf("Error redeeming invite for user [%d]: %s\n", id, err.Error())
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": participant})
		})

	event := g.Group("/events/:slug")
	event.
		POST("/feedback", func(ctx *gin.Context) {
			var body types.FeedbackBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			feedback, err := app.Content.SubmitFeedback(ctx, viewer(ctx), ctx.Param("slug"), body)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": feedback})
		}).
		POST("/media", func(ctx *gin.Context) {
			form, err := ctx.MultipartForm()
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			headers := form.File["files"]
			if len(headers) == 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
				return
			}
			uploads := make([]services.Upload, 0, len(headers))
			for _, h := range headers {
				f, err := h.Open()
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				defer f.Close()
				uploads = append(uploads, services.Upload{Name: h.Filename, ContentType: h.Header.Get("Content-Type"), Body: f})
			}
			media, err := app.Content.UploadMedia(ctx, viewer(ctx), ctx.Param("slug"), uploads)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": media})
		}).
		GET("/media", func(ctx *gin.Context) {
			var query mediaQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			media, total, err := app.Content.ListMedia(ctx, viewer(ctx), ctx.Param("slug"), query.UserID, query.PageQuery)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": media, "count": total})
		}).
		POST("/messages", func(ctx *gin.Context) {
			var body types.MessageBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			msg, err := app.Content.AddPersonalMessage(ctx, viewer(ctx), ctx.Param("slug"), body.Message)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": msg})
		}).
		GET("/messages", func(ctx *gin.Context) {
			msgs, err := app.Content.ListMessages(ctx, viewer(ctx), ctx.Param("slug"))
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": msgs})
		}).
		GET("/invoice", func(ctx *gin.Context) {
			invoice, err := app.Invoices.GetInvoice(ctx, viewer(ctx), ctx.Param("slug"))
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": invoice})
		}).
		GET("/invite/qr", func(ctx *gin.Context) {
			img, err := app.Invites.QRCode(ctx, viewer(ctx), ctx.Param("slug"))
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.Data(http.StatusOK, "image/jpeg", img)
		})
}

func adminHandlers(g *gin.RouterGroup, app *services.App) {
	g.
		POST("/events", func(ctx *gin.Context) {
			var body types.AddEventBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, err := app.Lifecycle.AddEvent(ctx, viewer(ctx), body)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": event})
		}).
		POST("/requests/:slug/approve", func(ctx *gin.Context) {
			var body types.PaymentTermsBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, inviteURL, err := app.Lifecycle.ApproveRequest(ctx, ctx.Param("slug"), body)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": event, "invite_url": inviteURL})
		}).
		POST("/events/:slug/create", func(ctx *gin.Context) {
			var body types.CreateEventBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			inviteURL, err := app.Lifecycle.CreateEvent(ctx, ctx.Param("slug"), body.Host, body.Cohosts)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"invite_url": inviteURL})
		}).
		PATCH("/events/:slug", func(ctx *gin.Context) {
			var body types.UpdateEventBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, err := app.Lifecycle.EditEvent(ctx, ctx.Param("slug"), body)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": event})
		}).
		DELETE("/events/:slug", func(ctx *gin.Context) {
			if err := app.Lifecycle.DeleteEvent(ctx, ctx.Param("slug")); err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/events/:slug/payments", func(ctx *gin.Context) {
			payments, err := app.Payments.PaymentsForEvent(ctx, ctx.Param("slug"))
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payments})
		})
}
