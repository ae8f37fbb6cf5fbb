package controllers

import (
	"falcontour/src/models"
	"falcontour/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func AccountsMe(ctx *gin.Context) (user *models.User, status int, err error) {
	user, err = app.Users.Me(ctx, ctx.GetUint("id"))
	if err != nil {
		return nil, Status(err), err
	}
	return user, http.StatusOK, nil
}

func AccountsDetails(ctx *gin.Context) (user *models.User, status int, err error) {
	var body types.UserDetailsBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	user, err = app.Users.AddUserDetails(ctx, ctx.GetString("email"), body)
	if err != nil {
		log.Printf("Error updating details of user [%d]: %s\n", ctx.GetUint("id"), err.Error())
		return nil, Status(err), err
	}
	return user, http.StatusOK, nil
}

// AccountsResetPassword requires the reset token to belong to the caller.
func AccountsResetPassword(ctx *gin.Context) (status int, err error) {
	var body types.ResetPasswordBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	if err := app.Users.ResetPassword(ctx, ctx.GetString("email"), body.Token, body.Password); err != nil {
		return Status(err), err
	}
	return http.StatusOK, nil
}

func AccountsNotifications(ctx *gin.Context) (rows []models.Notification, total int64, status int, err error) {
	var query types.PageQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return nil, 0, http.StatusBadRequest, err
	}
	rows, total, err = app.Users.Notifications(ctx, ctx.GetUint("id"), query)
	if err != nil {
		return nil, 0, Status(err), err
	}
	return rows, total, http.StatusOK, nil
}

func AccountsMarkRead(ctx *gin.Context) (updated int64, status int, err error) {
	var body types.MarkReadBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return 0, http.StatusBadRequest, err
	}
	updated, err = app.Users.MarkRead(ctx, ctx.GetUint("id"), body.IDs)
	if err != nil {
		return 0, Status(err), err
	}
	return updated, http.StatusOK, nil
}
