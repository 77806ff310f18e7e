package handlers

import (
	"errors"
	"net/http"

	"stride_back_end/internal/services"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

var orderErrors = []struct {
	err  error
	code int
	msg  string
}{
	{services.ErrEmptyOrder, http.StatusBadRequest, "Cannot place an empty order"},
	{services.ErrInvalidShoeID, http.StatusBadRequest, "Invalid shoe ID"},
	{services.ErrInvalidQuantity, http.StatusBadRequest, "Invalid item quantity"},
	{services.ErrIncompleteShipping, http.StatusBadRequest, "Incomplete shipping information"},
	{services.ErrPaymentMethodRequired, http.StatusBadRequest, "Payment method is required"},
	{services.ErrInvalidPaymentMethod, http.StatusBadRequest, "Invalid payment method"},
	{services.ErrProductsNotFound, http.StatusBadRequest, "Some products not found"},
	{services.ErrInvalidTotal, http.StatusBadRequest, "Invalid order total"},
	{services.ErrOrderNotFound, http.StatusNotFound, "Order not found or unauthorized"},
	{services.ErrInvalidPaymentStatus, http.StatusBadRequest, "Invalid payment status"},
	{services.ErrPaymentLocked, http.StatusBadRequest, "Payment status cannot be updated from current state"},
	{services.ErrInvalidOrderStatus, http.StatusBadRequest, "Invalid order status"},
	{services.ErrPaymentIncomplete, http.StatusBadRequest, "Order payment is not completed"},
	{services.ErrNotCancellable, http.StatusBadRequest, "Order can no longer be cancelled"},
	{services.ErrNotOnlinePayment, http.StatusBadRequest, "Order is not awaiting online payment"},
	{services.ErrPaymentsDisabled, http.StatusServiceUnavailable, "Online payments are not configured"},
}

// OrderError maps an order service error to its response.
func OrderError(c *gin.Context, err error) {
	var stock *services.StockError
	if errors.As(err, &stock) {
		utils.RespondFail(c, http.StatusConflict, "Insufficient stock for "+stock.Name)
		return
	}
	var tr *services.TransitionError
	if errors.As(err, &tr) {
		utils.RespondFail(c, http.StatusBadRequest, "Cannot change order status from "+string(tr.From)+" to "+string(tr.To))
		return
	}
	for _, e := range orderErrors {
		if errors.Is(err, e.err) {
			if e.code >= http.StatusInternalServerError {
				utils.RespondError(c, e.code, e.msg)
			} else {
				utils.RespondFail(c, e.code, e.msg)
			}
			return
		}
	}
	Internal(c, err)
}
