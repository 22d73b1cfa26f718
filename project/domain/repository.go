package domain

import (
	"context"
)

// TenantRepository はワークスペース設定の永続化を担当します。
// オーナーIDの読み出し（GetRegisteredOwner）がルーターから参照される唯一の
// オーナー識別経路であり、プロセス全体で共有する可変変数は存在しません
type TenantRepository interface {
	// Get は指定されたチームIDのワークスペース設定を取得します
	// 存在しない場合は domain.ErrNotFound を返します
	Get(ctx context.Context, teamID string) (*Tenant, error)

	// GetRegisteredOwner は指定ワークスペースの登録済みオーナーIDを返します
	// テナントが存在しない、またはオーナー未登録の場合は domain.ErrNotFound を返します
	GetRegisteredOwner(ctx context.Context, teamID string) (string, error)

	// UpsertBotTokenSecret はBotトークンのシークレット名を保存します
	// レコードが存在しない場合は新規作成し、ある場合は上書きします
	// CreatedAtが未設定の場合は現在時刻で初期化されます
	// バリデーションエラー時は domain.ErrInvalid を返します
	UpsertBotTokenSecret(ctx context.Context, teamID, secretName string) error

	// SetOwner はオーナーのSlackユーザーIDを設定します
	// ownerUserIDがnilの場合はオーナー登録を解除します
	// レコードが存在しない場合は domain.ErrNotFound を返します
	SetOwner(ctx context.Context, teamID string, ownerUserID *string) error
}
