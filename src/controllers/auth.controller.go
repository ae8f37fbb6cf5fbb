package controllers

import (
	"errors"
	"falcontour/src/services"
	"falcontour/src/types"
	"falcontour/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

var app *services.App

// Use installs the services the controllers call into.
func Use(a *services.App) {
	app = a
}

// Status maps a service error onto an HTTP status.
func Status(err error) int {
	var se *services.Error
	if errors.As(err, &se) {
		return se.StatusCode()
	}
	return http.StatusInternalServerError
}

// ErrorMessage hides unexpected errors outside local and test environments.
func ErrorMessage(err error) string {
	if services.KindOf(err) == 0 && utils.IsProd() {
		return "Internal Server Error"
	}
	return err.Error()
}

func Viewer(ctx *gin.Context) services.Viewer {
	role, _ := ctx.Get("role")
	r, _ := role.(types.UserRole)
	return services.Viewer{ID: ctx.GetUint("id"), Email: ctx.GetString("email"), Role: r}
}

func AuthRegister(ctx *gin.Context) (result *services.AuthResult, status int, err error) {
	var params types.TokenRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	result, err = app.Users.Register(ctx, body.Email, body.Password, params.Token)
	if err != nil {
		log.Printf("Error registering user %s: %s\n", body.Email, err.Error())
		return nil, Status(err), err
	}
	if body.FullName != "" {
		user, err := app.Users.AddUserDetails(ctx, result.User.Email, types.UserDetailsBody{FullName: body.FullName})
		if err != nil {
			log.Printf("Error saving name of user [%d]: %s\n", result.User.ID, err.Error())
		} else {
			result.User = user
		}
	}
	return result, http.StatusCreated, nil
}

func AuthLogin(ctx *gin.Context) (result *services.AuthResult, status int, err error) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	result, err = app.Users.Login(ctx, body.Email, body.Password, body.Token)
	if err != nil {
		return nil, Status(err), err
	}
	return result, http.StatusOK, nil
}

func AuthOAuthRegister(ctx *gin.Context) (result *services.AuthResult, status int, err error) {
	var params types.TokenRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	result, err = app.Users.RegisterWithOAuth(ctx, ctx.GetString("id_token"), params.Token)
	if err != nil {
		log.Printf("Error registering federated user: %s\n", err.Error())
		return nil, Status(err), err
	}
	return result, http.StatusCreated, nil
}

func AuthOAuthLogin(ctx *gin.Context) (result *services.AuthResult, status int, err error) {
	var body types.OAuthRequestBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			return nil, http.StatusBadRequest, err
		}
	}
	result, err = app.Users.LoginWithOAuth(ctx, ctx.GetString("id_token"), body.Token)
	if err != nil {
		return nil, Status(err), err
	}
	return result, http.StatusOK, nil
}

func OTPRequest(ctx *gin.Context) (status int, err error) {
	var body types.OTPRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	if err := app.OTPs.RequestOTP(ctx, body.Email); err != nil {
		log.Printf("[OTP] request for %s failed: %s\n", body.Email, err.Error())
		return Status(err), err
	}
	return http.StatusOK, nil
}

func OTPVerify(ctx *gin.Context) (token string, status int, err error) {
	var body types.OTPVerifyBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return "", http.StatusBadRequest, err
	}
	token, err = app.OTPs.VerifyOTP(ctx, body.Email, body.Code)
	if err != nil {
		return "", Status(err), err
	}
	return token, http.StatusOK, nil
}

// OTPReset is the public reset: the reset token alone identifies the user.
func OTPReset(ctx *gin.Context) (status int, err error) {
	var body types.ResetPasswordBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	if err := app.Users.ResetPassword(ctx, "", body.Token, body.Password); err != nil {
		return Status(err), err
	}
	return http.StatusOK, nil
}
