package main

import (
	"encoding/json"
	"errors"
	"falcontour/src/services"
	"falcontour/src/types"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// bindCreateRequest accepts either a JSON body or a multipart form with the
// JSON in the "data" part and an optional cover image in "file".
func bindCreateRequest(ctx *gin.Context) (*types.CreateEventRequestBody, *multipart.FileHeader, error) {
	var body types.CreateEventRequestBody
	if ctx.ContentType() == binding.MIMEJSON {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			return nil, nil, err
		}
		return &body, nil, nil
	}
	data := ctx.PostForm("data")
	if data == "" {
		return nil, nil, errors.New("missing data part")
	}
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return nil, nil, err
	}
	if err := binding.Validator.ValidateStruct(&body); err != nil {
		return nil, nil, err
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return &body, nil, nil
		}
		return nil, nil, err
	}
	return &body, file, nil
}

func requestHandlers(g *gin.RouterGroup, app *services.App) {
	g.
		POST("/requests", func(ctx *gin.Context) {
			body, file, err := bindCreateRequest(ctx)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var cover *services.Upload
			if file != nil {
				f, err := file.Open()
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				defer f.Close()
				cover = &services.Upload{Name: file.Filename, ContentType: file.Header.Get("Content-Type"), Body: f}
			}
			req, err := app.Lifecycle.CreateRequest(ctx, *body, ctx.GetString("email"), cover)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": req})
		}).
		GET("/requests", func(ctx *gin.Context) {
			var query types.PageQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rows, total, err := app.Lifecycle.GetRequests(ctx, viewer(ctx), query)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": rows, "count": total})
		}).
		PATCH("/requests/:slug", func(ctx *gin.Context) {
			var params types.SlugRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.EditEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			req, err := app.Lifecycle.EditRequest(ctx, viewer(ctx), params.Slug, body)
			if err != nil {
				abortWithError(ctx, errorStatus(err), err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": req})
		})
}
