package store

import (
	"context"
	"fmt"
	"time"

	"standup-agent/project/domain"
	"standup-agent/project/infrastructure/config"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// テナントドキュメントのフィールドキー。
// domain.Tenant の firestore タグと一致させること
const (
	fieldTeamID             = "team_id"
	fieldOwnerUserID        = "owner_user_id"
	fieldBotTokenSecretName = "bot_token_secret_name"
	fieldCreatedAt          = "created_at"
)

// isNotFound は Firestore の NotFound エラーを判定するヘルパー関数です
func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}

// FirestoreRepo は domain.TenantRepository の Firestore 実装です。
// 監視対象メンションは永続化しません — レジストリはプロセス内メモリが
// 唯一の正であり、再起動で未応答の監視が消えるのは許容される設計です
type FirestoreRepo struct {
	cli        *firestore.Client
	tenantsCol string
}

// NewFirestoreRepo は Firestore リポジトリを初期化します
func NewFirestoreRepo(ctx context.Context, cfg *config.Config) (*FirestoreRepo, error) {
	client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
	if err != nil {
		return nil, fmt.Errorf("firestore: クライアント初期化失敗: %w", err)
	}

	return &FirestoreRepo{
		cli:        client,
		tenantsCol: cfg.CollectionTenants,
	}, nil
}

// Get はテナント設定を取得します
func (repo *FirestoreRepo) Get(ctx context.Context, teamID string) (*domain.Tenant, error) {
	docRef := repo.cli.Collection(repo.tenantsCol).Doc(tenantDocID(teamID))

	snapshot, err := docRef.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore: テナント取得失敗 (teamID=%s): %w", teamID, err)
	}

	var t domain.Tenant
	if err := snapshot.DataTo(&t); err != nil {
		return nil, fmt.Errorf("firestore: テナント構造体変換失敗: %w", err)
	}

	return &t, nil
}

// GetRegisteredOwner は登録済みオーナーのユーザーIDを返します
// テナントが存在しない、またはオーナー未登録の場合は domain.ErrNotFound
func (repo *FirestoreRepo) GetRegisteredOwner(ctx context.Context, teamID string) (string, error) {
	tenant, err := repo.Get(ctx, teamID)
	if err != nil {
		return "", err
	}
	if tenant.OwnerUserID == nil || *tenant.OwnerUserID == "" {
		return "", domain.ErrNotFound
	}
	return *tenant.OwnerUserID, nil
}

// UpsertBotTokenSecret は Botトークンシークレット名を保存します
func (repo *FirestoreRepo) UpsertBotTokenSecret(ctx context.Context, teamID, secretName string) error {
	docRef := repo.cli.Collection(repo.tenantsCol).Doc(tenantDocID(teamID))

	// 既存レコードを取得（CreatedAt を保持するため）
	snapshot, err := docRef.Get(ctx)
	createdAt := time.Now().Unix()
	if err == nil {
		var existing domain.Tenant
		if err := snapshot.DataTo(&existing); err == nil && existing.CreatedAt > 0 {
			createdAt = existing.CreatedAt
		}
	}

	data := map[string]interface{}{
		fieldTeamID:             teamID,
		fieldBotTokenSecretName: secretName,
		fieldCreatedAt:          createdAt,
	}

	if _, err := docRef.Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore: ボットトークン保存失敗 (teamID=%s): %w", teamID, err)
	}

	return nil
}

// SetOwner はオーナーユーザーIDを設定します
func (repo *FirestoreRepo) SetOwner(ctx context.Context, teamID string, ownerUserID *string) error {
	docRef := repo.cli.Collection(repo.tenantsCol).Doc(tenantDocID(teamID))

	// 既存レコードを確認（存在しない場合はエラー）
	_, err := docRef.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore: テナント確認失敗 (teamID=%s): %w", teamID, err)
	}

	// nil の場合はフィールドを削除、値がある場合は更新
	if ownerUserID == nil {
		_, err = docRef.Update(ctx, []firestore.Update{
			{Path: fieldOwnerUserID, Value: firestore.Delete},
		})
	} else {
		_, err = docRef.Update(ctx, []firestore.Update{
			{Path: fieldOwnerUserID, Value: *ownerUserID},
		})
	}

	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore: オーナー設定失敗 (teamID=%s): %w", teamID, err)
	}

	return nil
}

// Close は Firestore クライアントを閉じます
func (repo *FirestoreRepo) Close() error {
	if repo.cli != nil {
		return repo.cli.Close()
	}
	return nil
}

// tenantDocID はテナント設定のドキュメントID を生成します
func tenantDocID(team string) string {
	return team
}
