package purchasingserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the API implementations served by the router.
type ApiHandleFunctions struct {
	PurchaseOrderAPI PurchaseOrderAPI
}

// NewRouter returns a new router. Middleware applies to every /v1 route but not to the health check.
func NewRouter(handleFunctions ApiHandleFunctions, middleware ...gin.HandlerFunc) *gin.Engine {
	return NewRouterWithGinEngine(gin.New(), handleFunctions, middleware...)
}

// NewRouterWithGinEngine adds routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions, middleware ...gin.HandlerFunc) *gin.Engine {
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	group := router.Group("/v1", middleware...)
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		group.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc answers routes that have no implementation.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	api := &handleFunctions.PurchaseOrderAPI
	return []Route{
		{"CreateOrder", http.MethodPost, "/purchase-orders", api.CreateOrder},
		{"ListOrders", http.MethodGet, "/purchase-orders", api.ListOrders},
		{"GetOrder", http.MethodGet, "/purchase-orders/:orderId", api.GetOrder},
		{"UpdateOrder", http.MethodPatch, "/purchase-orders/:orderId", api.UpdateOrder},
		{"DeleteOrder", http.MethodDelete, "/purchase-orders/:orderId", api.DeleteOrder},
		{"ChangeStatus", http.MethodPost, "/purchase-orders/:orderId/status", api.ChangeStatus},
		{"SubmitForApproval", http.MethodPost, "/purchase-orders/:orderId/submit", api.SubmitForApproval},
		{"SendToSupplier", http.MethodPost, "/purchase-orders/:orderId/send", api.SendToSupplier},
		{"CancelOrder", http.MethodPost, "/purchase-orders/:orderId/cancel", api.CancelOrder},
		{"CloseOrder", http.MethodPost, "/purchase-orders/:orderId/close", api.CloseOrder},
		{"ProcessApproval", http.MethodPost, "/purchase-orders/:orderId/approval", api.ProcessApproval},
		{"ApprovalStatus", http.MethodGet, "/purchase-orders/:orderId/approval", api.ApprovalStatus},
		{"ValidateReceipt", http.MethodPost, "/purchase-orders/:orderId/receipts/validate", api.ValidateReceipt},
		{"ReceiveItems", http.MethodPost, "/purchase-orders/:orderId/receipts", api.ReceiveItems},
		{"History", http.MethodGet, "/purchase-orders/:orderId/history", api.History},
		{"AvailableTransitions", http.MethodGet, "/purchase-orders/:orderId/transitions", api.AvailableTransitions},
	}
}
