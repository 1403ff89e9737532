package firestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/omnicart/api/internal/domain"
	pfirestore "github.com/omnicart/api/internal/platform/firestore"
	"github.com/omnicart/api/internal/repositories"
)

const productsCollection = "products"

type productDocument struct {
	VendorID  string    `firestore:"vendorId"`
	Name      string    `firestore:"name"`
	Price     int64     `firestore:"price"`
	Stock     int64     `firestore:"stock"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// ProductRepository implements repositories.ProductRepository backed by
// Firestore. Stock mutations run inside transactions so the check and the
// write observe the same document revision.
type ProductRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil)
	return &ProductRepository{provider: provider, products: base}, nil
}

// FindByID loads the stock-relevant product projection.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product find: id is required")
	}

	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// DecrementStock subtracts quantity from the product's stock if and only if
// enough stock remains. The re-read and write share one transaction, so two
// concurrent decrements can never both pass the check.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, quantity int64) (domain.Product, error) {
	return r.adjustStock(ctx, "products.decrement", productID, -quantity)
}

// RestoreStock adds quantity back to the product's stock. No upper bound is
// enforced; returned inventory is always accepted.
func (r *ProductRepository) RestoreStock(ctx context.Context, productID string, quantity int64) (domain.Product, error) {
	return r.adjustStock(ctx, "products.restore", productID, quantity)
}

func (r *ProductRepository) adjustStock(ctx context.Context, op string, productID string, delta int64) (domain.Product, error) {
	if r == nil || r.provider == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product stock: id is required")
	}
	if delta == 0 {
		return domain.Product{}, errors.New("product stock: quantity must be positive")
	}

	var updated domain.Product
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.products.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode product %s: %w", productID, err)
		}

		next := doc.Stock + delta
		if next < 0 {
			return status.Errorf(codes.FailedPrecondition, "product %s stock %d cannot satisfy %d", productID, doc.Stock, -delta)
		}

		if err := tx.Update(ref, []firestore.Update{
			{Path: "stock", Value: next},
			{Path: "updatedAt", Value: time.Now().UTC()},
		}); err != nil {
			return err
		}

		doc.Stock = next
		updated = doc.toDomain(productID)
		return nil
	})
	if err != nil {
		return domain.Product{}, pfirestore.WrapError(op, err)
	}
	return updated, nil
}

// ListLowStock pages through a vendor's products at or below the threshold.
func (r *ProductRepository) ListLowStock(ctx context.Context, filter repositories.LowStockFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.lowStock", err)
	}

	query := client.Collection(productsCollection).Query
	if vendorID := strings.TrimSpace(filter.VendorID); vendorID != "" {
		query = query.Where("vendorId", "==", vendorID)
	}
	query = query.Where("stock", "<=", filter.Threshold).
		OrderBy("stock", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		decoded, err := decodeLowStockPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.lowStock", err)
		}
		query = query.StartAfter(decoded.Stock, decoded.ProductID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var products []domain.Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.lowStock", err)
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		products = append(products, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(products) > pageSize
	if hasMore {
		products = products[:pageSize]
	}
	var nextToken string
	if hasMore && len(products) > 0 {
		last := products[len(products)-1]
		encoded, err := encodeLowStockPageToken(lowStockPageToken{ProductID: last.ID, Stock: last.Stock})
		if err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.lowStock", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Product]{
		Items:         products,
		NextPageToken: nextToken,
	}, nil
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:        id,
		VendorID:  strings.TrimSpace(d.VendorID),
		Name:      d.Name,
		Price:     d.Price,
		Stock:     d.Stock,
		UpdatedAt: d.UpdatedAt,
	}
}

type lowStockPageToken struct {
	ProductID string
	Stock     int64
}

func encodeLowStockPageToken(token lowStockPageToken) (string, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(token); err != nil {
		return "", fmt.Errorf("encode low stock page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeLowStockPageToken(encoded string) (*lowStockPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode low stock page token: %w", err)
	}
	var token lowStockPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode low stock page token json: %w", err)
	}
	return &token, nil
}
