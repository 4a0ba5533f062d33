package catalog

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"heliox/db"
	"heliox/models"
	"heliox/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type itemRequest struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Wattage    float64 `json:"wattage"`
	DayHours   float64 `json:"dayHours"`
	NightHours float64 `json:"nightHours"`
}

func (req itemRequest) validate() error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	if req.Quantity < 0 || req.Wattage < 0 || req.DayHours < 0 || req.NightHours < 0 {
		return errors.New("quantity, wattage and hours must be non-negative")
	}
	return nil
}

// CreateItem adds a catalog item.
// POST /api/catalog
func CreateItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	item := models.CatalogItem{
		ItemID:     utils.GetUUID(),
		Name:       req.Name,
		Quantity:   req.Quantity,
		Wattage:    req.Wattage,
		DayHours:   req.DayHours,
		NightHours: req.NightHours,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := db.CatalogCollection.InsertOne(r.Context(), item); err != nil {
		log.Printf("CreateItem: insert failed: %v", err)
		utils.RespondWithInternalError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, item)
}

// GetItem returns one catalog item.
// GET /api/catalog/:itemId
func GetItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itemID := ps.ByName("itemId")

	var item models.CatalogItem
	err := db.CatalogCollection.FindOne(r.Context(), bson.M{"itemId": itemID}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Item not found")
			return
		}
		log.Printf("GetItem: lookup failed for %s: %v", itemID, err)
		utils.RespondWithInternalError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, item)
}

// GetItems lists the catalog, lowest wattage first.
// GET /api/catalog
func GetItems(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cur, err := db.CatalogCollection.Find(r.Context(), bson.M{},
		options.Find().SetSort(bson.M{"wattage": 1}))
	if err != nil {
		log.Printf("GetItems: query failed: %v", err)
		utils.RespondWithInternalError(w, err)
		return
	}
	defer cur.Close(r.Context())

	items := []models.CatalogItem{}
	if err := cur.All(r.Context(), &items); err != nil {
		log.Printf("GetItems: decode failed: %v", err)
		utils.RespondWithInternalError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, items)
}

// UpdateItem replaces the mutable fields of a catalog item.
// PUT /api/catalog/:itemId
func UpdateItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itemID := ps.ByName("itemId")

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := db.CatalogCollection.FindOneAndUpdate(r.Context(),
		bson.M{"itemId": itemID},
		bson.M{"$set": bson.M{
			"name":       req.Name,
			"quantity":   req.Quantity,
			"wattage":    req.Wattage,
			"dayHours":   req.DayHours,
			"nightHours": req.NightHours,
			"updatedAt":  time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var item models.CatalogItem
	if err := res.Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Item not found")
			return
		}
		log.Printf("UpdateItem: update failed for %s: %v", itemID, err)
		utils.RespondWithInternalError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, item)
}

// DeleteItem removes a catalog item.
// DELETE /api/catalog/:itemId
func DeleteItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itemID := ps.ByName("itemId")

	res, err := db.CatalogCollection.DeleteOne(r.Context(), bson.M{"itemId": itemID})
	if err != nil {
		log.Printf("DeleteItem: delete failed for %s: %v", itemID, err)
		utils.RespondWithInternalError(w, err)
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Item not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Item has been deleted"})
}
