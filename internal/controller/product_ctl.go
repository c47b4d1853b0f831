package controller

import (
	"github.com/gin-gonic/gin"

	"jiuba_platform/internal/api/dto"
	"jiuba_platform/internal/service"
)

// ProductController 商品与分类
type ProductController struct {
	productSvc  *service.ProductService
	categorySvc *service.CategoryService
}

func NewProductController(productSvc *service.ProductService, categorySvc *service.CategoryService) *ProductController {
	return &ProductController{
		productSvc:  productSvc,
		categorySvc: categorySvc,
	}
}

// ==================== 分类 ====================

// ListCategories 分类列表
// @Summary 分类列表
// @Description 不分页，游客只返回启用的分类
// @Tags Product
// @Produce json
// @Success 200 {array} dto.CategoryInfo
// @Router /api/categories [get]
func (c *ProductController) ListCategories(ctx *gin.Context) {
	list, err := c.categorySvc.List(ctx.Request.Context(), actorFrom(ctx))
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", list)
}

// GetCategory 分类详情
// @Summary 分类详情
// @Tags Product
// @Produce json
// @Param id path int true "分类ID"
// @Success 200 {object} dto.CategoryInfo
// @Router /api/categories/{id} [get]
func (c *ProductController) GetCategory(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	category, err := c.categorySvc.Get(ctx.Request.Context(), id)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "success", category)
}

// CreateCategory 创建分类
// @Summary 创建分类
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CategoryRequest true "分类"
// @Success 201 {object} dto.CategoryInfo
// @Router /api/categories [post]
func (c *ProductController) CreateCategory(ctx *gin.Context) {
	var req dto.CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	category, err := c.categorySvc.Create(ctx.Request.Context(), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	created(ctx, "创建成功", category)
}

// UpdateCategory 更新分类
// @Summary 更新分类
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Param request body dto.CategoryRequest true "分类"
// @Success 200 {object} dto.CategoryInfo
// @Router /api/categories/{id} [put]
func (c *ProductController) UpdateCategory(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	category, err := c.categorySvc.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "更新成功", category)
}

// DeleteCategory 删除分类，商品的 category_id 置空
// @Summary 删除分类
// @Tags Product
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/categories/{id} [delete]
func (c *ProductController) DeleteCategory(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.categorySvc.Delete(ctx.Request.Context(), id); err != nil {
		handleError(ctx, err)
		return
	}
	success(ctx, "删除成功", nil)
}

// ==================== 商品 ====================

// GetProducts 商品列表
// @Summary 商品列表
// @Description 公开列表仅含已发布且可售的商品，员工传 all=true 查看全部状态
// @Tags Product
// @Produce json
// @Param all query bool false "查看全部状态（员工）"
// @Param min_price query number false "最低价"
// @Param max_price query number false "最高价"
// @Param category query int false "分类ID"
// @Param shop query int false "店铺ID"
// @Param in_stock query bool false "是否有库存"
// @Param status query string false "状态"
// @Param is_available query bool false "是否可售"
// @Param name query string false "名称包含"
// @Param description query string false "描述包含"
// @Param search query string false "名称/描述搜索"
// @Param ordering query string false "price | created_at | sort_order"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.PageResult[dto.ProductInfo]
// @Router /api/products [get]
func (c *ProductController) GetProducts(ctx *gin.Context) {
	var req dto.ProductListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.productSvc.List(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", page)
}

// GetPublished 已发布商品
// @Summary 已发布商品
// @Tags Product
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.PageResult[dto.ProductInfo]
// @Router /api/products/published [get]
func (c *ProductController) GetPublished(ctx *gin.Context) {
	var q dto.PageQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.productSvc.Published(ctx.Request.Context(), q)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", page)
}

// GetProduct 商品详情
// @Summary 商品详情
// @Tags Product
// @Produce json
// @Param id path int true "商品ID"
// @Success 200 {object} dto.ProductInfo
// @Failure 404 {object} map[string]interface{}
// @Router /api/products/{id} [get]
func (c *ProductController) GetProduct(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	product, err := c.productSvc.Get(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "success", product)
}

// CreateProduct 创建商品
// @Summary 创建商品
// @Description 商家只能在所属店铺创建
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateProductRequest true "商品"
// @Success 201 {object} dto.ProductInfo
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/products [post]
func (c *ProductController) CreateProduct(ctx *gin.Context) {
	var req dto.CreateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	product, err := c.productSvc.Create(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	created(ctx, "创建成功", product)
}

// UpdateProduct 更新商品
// @Summary 更新商品
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param request body dto.UpdateProductRequest true "更新字段"
// @Success 200 {object} dto.ProductInfo
// @Router /api/products/{id} [put]
func (c *ProductController) UpdateProduct(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	product, err := c.productSvc.Update(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "更新成功", product)
}

// ToggleProductStatus 上架/下架
// @Summary 上架/下架
// @Description published 与 draft 之间切换
// @Tags Product
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Success 200 {object} dto.ProductInfo
// @Router /api/products/{id}/toggle-status [post]
func (c *ProductController) ToggleProductStatus(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	product, err := c.productSvc.ToggleStatus(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "状态已更新", product)
}

// UploadProductImage 上传商品图片
// @Summary 上传商品图片
// @Tags Product
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param file formData file true "图片"
// @Success 200 {object} dto.UploadResponse
// @Router /api/products/{id}/image [post]
func (c *ProductController) UploadProductImage(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	data, ok := readImage(ctx, "file")
	if !ok {
		return
	}

	resp, err := c.productSvc.UploadImage(ctx.Request.Context(), actorFrom(ctx), id, data)
	if err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "上传成功", resp)
}

// DeleteProduct 删除商品
// @Summary 删除商品
// @Tags Product
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/products/{id} [delete]
func (c *ProductController) DeleteProduct(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.productSvc.Delete(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		handleError(ctx, err)
		return
	}

	success(ctx, "删除成功", nil)
}
