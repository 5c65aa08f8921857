package api

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blackbox-backend/internal/model"
	"blackbox-backend/internal/mw"
)

type createInventoryRequest struct {
	ID          string   `json:"id"`
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Quantity    *float64 `json:"quantity"`
	Category    *string  `json:"category"`
	Slot        *string  `json:"slot"`
	Image       string   `json:"image"`
	Description string   `json:"description"`
}

// ListInventory handles GET /api/inventory.
func (h *Handler) ListInventory(c *gin.Context) {
	items, err := h.store.ListInventory(c.Request.Context(), mw.Tenant(c))
	if err != nil {
		log.Printf("list inventory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch inventory"})
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	c.JSON(http.StatusOK, items)
}

// CreateInventory handles POST /api/inventory.
func (h *Handler) CreateInventory(c *gin.Context) {
	var req createInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	if req.Name == nil || req.Price == nil || req.Quantity == nil || req.Category == nil || req.Slot == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required fields: name, price, quantity, category, slot"})
		return
	}
	if *req.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Price must be a non-negative number"})
		return
	}
	if *req.Quantity < 0 || *req.Quantity != math.Trunc(*req.Quantity) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Quantity must be a non-negative integer"})
		return
	}

	item := model.InventoryItem{
		ID:          req.ID,
		MachineID:   mw.Tenant(c),
		Name:        *req.Name,
		Price:       *req.Price,
		Quantity:    int(*req.Quantity),
		Category:    *req.Category,
		Slot:        *req.Slot,
		Image:       req.Image,
		Description: req.Description,
	}
	if err := h.store.CreateInventoryItem(c.Request.Context(), &item); err != nil {
		log.Printf("create inventory item: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create inventory item"})
		return
	}

	h.broadcastInventoryUpdated()
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

// UpdateInventory handles PUT /api/inventory.
func (h *Handler) UpdateInventory(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	id, _ := req["id"].(string)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Item id is required"})
		return
	}

	machineID := mw.Tenant(c)
	current, err := h.store.GetInventoryItem(c.Request.Context(), machineID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Item not found"})
		return
	}
	if err != nil {
		log.Printf("fetch inventory item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch inventory item"})
		return
	}

	updates := make(map[string]any)
	for _, field := range []string{"name", "price", "quantity", "category", "slot", "image", "description"} {
		if v, ok := req[field]; ok {
			updates[field] = v
		}
	}
	if v, ok := updates["price"]; ok {
		price, ok := v.(float64)
		if !ok || price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Price must be a non-negative number"})
			return
		}
	}
	if v, ok := updates["quantity"]; ok {
		qty, ok := v.(float64)
		if !ok || qty < 0 || qty != math.Trunc(qty) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Quantity must be a non-negative integer"})
			return
		}
		updates["quantity"] = int(qty)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No updatable fields provided"})
		return
	}

	if err := h.store.UpdateInventoryItem(c.Request.Context(), machineID, id, updates); err != nil {
		log.Printf("update inventory item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update inventory item"})
		return
	}

	// When the image is replaced, delete the old object in the background
	// so a slow storage API never stalls the response.
	if newImage, ok := updates["image"].(string); ok && newImage != current.Image {
		h.deleteImageAsync(current.Image)
	}

	updated, err := h.store.GetInventoryItem(c.Request.Context(), machineID, id)
	if err != nil {
		log.Printf("reload inventory item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch inventory item"})
		return
	}

	h.broadcastInventoryUpdated()
	c.JSON(http.StatusOK, gin.H{"success": true, "item": updated})
}

// DeleteInventory handles DELETE /api/inventory.
func (h *Handler) DeleteInventory(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Item id is required"})
		return
	}

	machineID := mw.Tenant(c)
	current, err := h.store.GetInventoryItem(c.Request.Context(), machineID, req.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Item not found"})
		return
	}
	if err != nil {
		log.Printf("fetch inventory item %s: %v", req.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch inventory item"})
		return
	}

	if err := h.store.DeleteInventoryItem(c.Request.Context(), machineID, req.ID); err != nil {
		log.Printf("delete inventory item %s: %v", req.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete inventory item"})
		return
	}

	h.deleteImageAsync(current.Image)
	h.broadcastInventoryUpdated()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Item deleted successfully"})
}

// InitInventory handles GET /api/inventory/init. It seeds a fresh
// machine with the default product catalogue; an already-populated
// machine is left untouched.
func (h *Handler) InitInventory(c *gin.Context) {
	machineID := mw.Tenant(c)
	count, err := h.store.CountInventory(c.Request.Context(), machineID)
	if err != nil {
		log.Printf("count inventory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to check inventory"})
		return
	}
	if count > 0 {
		items, err := h.store.ListInventory(c.Request.Context(), machineID)
		if err != nil {
			log.Printf("list inventory: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch inventory"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Inventory already exists", "inventory": items})
		return
	}

	items := defaultInventory(machineID)
	for i := range items {
		if err := h.store.CreateInventoryItem(c.Request.Context(), &items[i]); err != nil {
			log.Printf("seed inventory item %s: %v", items[i].ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to initialize inventory"})
			return
		}
	}

	h.broadcastInventoryUpdated()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Inventory initialized", "inventory": items})
}

func (h *Handler) deleteImageAsync(publicURL string) {
	if h.storage == nil || !h.storage.Deletable(publicURL) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.storage.DeleteByPublicURL(ctx, publicURL); err != nil {
			log.Printf("delete stored image %s: %v", publicURL, err)
		}
	}()
}

func defaultInventory(machineID string) []model.InventoryItem {
	defaults := []struct {
		id, name, category, slot string
		price                    float64
		quantity                 int
	}{
		{"0", "Lays Classic", "Snacks", "A1", 20, 10},
		{"1", "Kurkure Masala Munch", "Snacks", "A2", 20, 10},
		{"2", "Coca Cola", "Beverages", "B1", 40, 10},
		{"3", "Sprite", "Beverages", "B2", 40, 10},
		{"4", "Dairy Milk", "Chocolates", "C1", 50, 10},
		{"5", "KitKat", "Chocolates", "C2", 30, 10},
	}

	items := make([]model.InventoryItem, 0, len(defaults))
	for _, d := range defaults {
		items = append(items, model.InventoryItem{
			ID:        d.id,
			MachineID: machineID,
			Name:      d.name,
			Price:     d.price,
			Quantity:  d.quantity,
			Category:  d.category,
			Slot:      d.slot,
		})
	}
	return items
}
