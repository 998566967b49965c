package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/repository"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/service"
)

type Server struct {
	engine    *gin.Engine
	log       *slog.Logger
	products  *service.ProductService
	addresses *service.AddressService
	orders    *service.OrderService
	receipts  *service.ReceiptService
}

func NewServer(log *slog.Logger, products *service.ProductService, addresses *service.AddressService, orders *service.OrderService, receipts *service.ReceiptService) *Server {
	r := gin.New()
	r.Use(requestLogger(log), gin.Recovery())
	s := &Server{engine: r, log: log, products: products, addresses: addresses, orders: orders, receipts: receipts}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)
		products.GET("", s.listProducts)

		addresses := v1.Group("/addresses")
		addresses.POST("", s.createAddress)
		addresses.GET(":id", s.getAddress)

		orders := v1.Group("/orders")
		orders.POST("", s.createOrder)
		orders.GET(":id", s.getOrder)
		orders.GET(":id/receipt", s.getReceipt)
		orders.POST(":id/cancel", s.cancelOrder)
		orders.POST(":id/status", s.updateOrderStatus)
		orders.POST(":id/payment", s.attachPayment)
	}
}

// Product handlers
type productReq struct {
	Name  string          `json:"name"`
	Unit  string          `json:"unit"`
	Price decimal.Decimal `json:"price" swaggertype:"number"`
	Stock int64           `json:"stock"`
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Create(c, domain.Product{Name: req.Name, Unit: req.Unit, Price: req.Price, Stock: req.Stock})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.products.GetByID(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Update(c, domain.Product{ID: c.Param("id"), Name: req.Name, Unit: req.Unit, Price: req.Price, Stock: req.Stock})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param id path string true "Product ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.products.Delete(c, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Param min_price query number false "Min price"
// @Param max_price query number false "Max price"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	var f repository.ProductFilter
	if q := c.Query("q"); q != "" {
		f.NameSubstring = q
	}
	if v := c.Query("min_price"); v != "" {
		if x, err := decimal.NewFromString(v); err == nil {
			f.MinPrice = &x
		}
	}
	if v := c.Query("max_price"); v != "" {
		if x, err := decimal.NewFromString(v); err == nil {
			f.MaxPrice = &x
		}
	}
	list, err := s.products.List(c, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Address handlers
type addressReq struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	AddressType   string `json:"address_type" binding:"required"`
	StreetAddress string `json:"street_address" binding:"required"`
	City          string `json:"city" binding:"required"`
	State         string `json:"state" binding:"required"`
	Pincode       string `json:"pincode" binding:"required"`
}

// @Summary Create delivery address
// @Tags addresses
// @Accept json
// @Produce json
// @Param input body addressReq true "Address"
// @Success 201 {object} domain.Address
// @Failure 400 {object} map[string]string
// @Router /addresses [post]
func (s *Server) createAddress(c *gin.Context) {
	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := s.addresses.Create(c, domain.Address{
		Name:          req.Name,
		Phone:         req.Phone,
		AddressType:   req.AddressType,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		Pincode:       req.Pincode,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary Get delivery address
// @Tags addresses
// @Produce json
// @Param id path string true "Address ID"
// @Success 200 {object} domain.Address
// @Failure 404 {object} map[string]string
// @Router /addresses/{id} [get]
func (s *Server) getAddress(c *gin.Context) {
	a, err := s.addresses.GetByID(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Order handlers
type orderLineReq struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

type createOrderReq struct {
	AddressID   string             `json:"address_id" binding:"required"`
	PaymentMode domain.PaymentMode `json:"payment_mode" binding:"required,oneof=Cash Online"`
	Gateway     *domain.GatewayRef `json:"gateway"`
	Items       []orderLineReq     `json:"items" binding:"required,min=1,dive"`
}

// @Summary Create order
// @Tags orders
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	in := service.CreateOrderInput{
		AddressID:   req.AddressID,
		PaymentMode: req.PaymentMode,
		Gateway:     req.Gateway,
		Items:       make([]service.OrderLine, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	o, err := s.orders.CreateOrder(c, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.GetOrder(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Cancel order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	o, err := s.orders.CancelOrder(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type statusReq struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

// @Summary Change order status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body statusReq true "New status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/status [post]
func (s *Server) updateOrderStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.UpdateStatus(c, c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type paymentReq struct {
	PaymentID string `json:"payment_id" binding:"required"`
	OrderID   string `json:"order_id" binding:"required"`
}

// @Summary Record gateway payment
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body paymentReq true "Gateway references"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/payment [post]
func (s *Server) attachPayment(c *gin.Context) {
	var req paymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.AttachPayment(c, c.Param("id"), domain.GatewayRef{PaymentID: req.PaymentID, OrderID: req.OrderID})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// fail records err for the access log and answers with its mapped status.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotEnoughStock):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
