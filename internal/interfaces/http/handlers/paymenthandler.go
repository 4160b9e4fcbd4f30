package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	paymentUsecases "paysweep/internal/application/payment/usecases"
	"paysweep/internal/shared/logger"
	"paysweep/internal/shared/utils"
)

type PaymentHandler struct {
	initiatePaymentUC *paymentUsecases.InitiatePaymentUseCase
	verifyPaymentUC   *paymentUsecases.VerifyPaymentUseCase
	logger            logger.Interface
}

func NewPaymentHandler(
	initiatePaymentUC *paymentUsecases.InitiatePaymentUseCase,
	verifyPaymentUC *paymentUsecases.VerifyPaymentUseCase,
	logger logger.Interface,
) *PaymentHandler {
	return &PaymentHandler{
		initiatePaymentUC: initiatePaymentUC,
		verifyPaymentUC:   verifyPaymentUC,
		logger:            logger,
	}
}

// Gateway methods this deployment can settle.
const methodZibal = "zibal"

func supportedMethod(c *gin.Context) bool {
	return c.Param("method") == methodZibal
}

type InitiatePaymentResponse struct {
	TradeNo     string `json:"trade_no"`
	TrackID     string `json:"track_id"`
	RedirectURL string `json:"redirect_url"`
}

// InitiatePayment starts a gateway session for a pending order and returns
// the redirect URL.
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	if !supportedMethod(c) {
		utils.ErrorResponse(c, http.StatusNotFound, "unsupported payment method")
		return
	}

	tradeNo := c.Param("tradeNo")
	if tradeNo == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "trade_no is required")
		return
	}

	result, err := h.initiatePaymentUC.Execute(c.Request.Context(), tradeNo)
	if err != nil {
		h.logger.Errorw("failed to initiate payment", "error", err, "trade_no", tradeNo)
		utils.ErrorResponseWithError(c, err)
		return
	}

	response := InitiatePaymentResponse{
		TradeNo:     result.TradeNo,
		TrackID:     result.TrackID,
		RedirectURL: result.RedirectURL,
	}

	utils.SuccessResponse(c, http.StatusOK, "payment initiated", response)
}

type NotifyRequest struct {
	TrackID string `form:"trackId" json:"trackId"`
	Success int    `form:"success" json:"success"`
	Status  int    `form:"status" json:"status"`
}

type NotifyResponse struct {
	TradeNo string `json:"trade_no"`
	TrackID string `json:"track_id"`
	Paid    bool   `json:"paid"`
}

// HandleNotify processes the gateway's return/notify callback. The callback
// parameters are untrusted; the usecase re-verifies against the gateway
// before any order transitions.
func (h *PaymentHandler) HandleNotify(c *gin.Context) {
	if !supportedMethod(c) {
		utils.ErrorResponse(c, http.StatusNotFound, "unsupported payment method")
		return
	}

	tradeNo := c.Param("tradeNo")
	if tradeNo == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "trade_no is required")
		return
	}

	var req NotifyRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warnw("failed to bind notify request", "error", err, "trade_no", tradeNo)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid notify parameters")
		return
	}

	params := paymentUsecases.NotifyParams{
		TradeNo: tradeNo,
		TrackID: req.TrackID,
		Success: req.Success,
	}

	result, err := h.verifyPaymentUC.Execute(c.Request.Context(), params)
	if err != nil {
		h.logger.Warnw("payment verification failed",
			"error", err,
			"trade_no", tradeNo,
			"track_id", req.TrackID,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}

	response := NotifyResponse{
		TradeNo: tradeNo,
		TrackID: result.TrackID,
		Paid:    true,
	}

	utils.SuccessResponse(c, http.StatusOK, "payment verified", response)
}
