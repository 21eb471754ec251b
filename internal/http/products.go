package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/selectshop/internal/repo"
	"github.com/tazhibayda/selectshop/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type productReq struct {
	Title  string `json:"title"`
	Image  string `json:"image"`
	Link   string `json:"link"`
	LPrice int    `json:"lprice"`
}

type myPriceReq struct {
	MyPrice int `json:"myprice"`
}

// pageQuery reads ?page=1&size=10&sortBy=id&isAsc=false. page is one based.
func pageQuery(c *gin.Context) (repo.Page, error) {
	p := repo.Page{SortBy: c.DefaultQuery("sortBy", "id")}
	var err error
	if p.Number, err = strconv.Atoi(c.DefaultQuery("page", "1")); err != nil || p.Number < 1 {
		return p, fmt.Errorf("%w: page must be a positive number", errBadRequest)
	}
	p.Number--
	if p.Size, err = strconv.Atoi(c.DefaultQuery("size", "10")); err != nil {
		return p, fmt.Errorf("%w: size must be a number", errBadRequest)
	}
	if p.Asc, err = strconv.ParseBool(c.DefaultQuery("isAsc", "false")); err != nil {
		return p, fmt.Errorf("%w: isAsc must be a boolean", errBadRequest)
	}
	return p, nil
}

// CreateProduct godoc
// @Summary Register a product to watch
// @Tags products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body productReq true "product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} apiError
// @Failure 401 {object} apiError
// @Router /api/products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	var in productReq
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid json", errBadRequest))
		return
	}
	u, _ := currentUser(c)
	p, err := h.Products.Create(c.Request.Context(), u, service.ProductInput{
		Title:  in.Title,
		Image:  in.Image,
		Link:   in.Link,
		LPrice: in.LPrice,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdateMyPrice godoc
// @Summary Set the wish price of a product
// @Tags products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "product id"
// @Param payload body myPriceReq true "price"
// @Success 200 {object} domain.Product
// @Failure 400 {object} apiError
// @Failure 403 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/products/{id} [put]
func (h *Handler) UpdateMyPrice(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		_ = c.Error(service.ErrProductNotFound)
		return
	}
	var in myPriceReq
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid json", errBadRequest))
		return
	}
	u, _ := currentUser(c)
	p, err := h.Products.UpdateMyPrice(c.Request.Context(), u, id, in.MyPrice)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListProducts godoc
// @Summary List own products
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param page query int false "page, starting at 1"
// @Param size query int false "page size"
// @Param sortBy query string false "id, title, lprice, createdAt, modifiedAt"
// @Param isAsc query bool false "ascending"
// @Success 200 {object} repo.ProductPage
// @Router /api/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	p, err := pageQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	u, _ := currentUser(c)
	page, err := h.Products.ListMine(c.Request.Context(), u, p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// AdminListProducts godoc
// @Summary List every user's products
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} repo.ProductPage
// @Failure 403 {object} apiError
// @Router /api/admin/products [get]
func (h *Handler) AdminListProducts(c *gin.Context) {
	p, err := pageQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	u, _ := currentUser(c)
	page, err := h.Products.ListAll(c.Request.Context(), u, p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// AdminAPIUseTime godoc
// @Summary Accumulated API time per user
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.APIUseTime
// @Failure 403 {object} apiError
// @Router /api/admin/api-use-time [get]
func (h *Handler) AdminAPIUseTime(c *gin.Context) {
	u, _ := currentUser(c)
	list, err := h.Usage.List(c.Request.Context(), u)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}
