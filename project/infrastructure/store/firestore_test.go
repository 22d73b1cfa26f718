package store

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"standup-agent/project/domain"
)

// 書き込みキーと domain.Tenant の firestore タグの対応。
// ここがずれると Set/Update で保存した値を DataTo が復元できず、
// オーナー登録が常に未設定として読まれてしまいます
func TestTenantFieldKeysMatchStructTags(t *testing.T) {
	wantTags := map[string]string{
		"TeamID":             fieldTeamID,
		"OwnerUserID":        fieldOwnerUserID,
		"BotTokenSecretName": fieldBotTokenSecretName,
		"CreatedAt":          fieldCreatedAt,
	}

	tenantType := reflect.TypeOf(domain.Tenant{})
	require.Equal(t, len(wantTags), tenantType.NumField(),
		"Tenantのフィールド追加時はキー定数とタグを揃えること")

	for i := 0; i < tenantType.NumField(); i++ {
		field := tenantType.Field(i)
		tag, ok := field.Tag.Lookup("firestore")
		require.True(t, ok, "フィールド %s に firestore タグがありません", field.Name)

		want, ok := wantTags[field.Name]
		require.True(t, ok, "未知のフィールド %s", field.Name)
		assert.Equal(t, want, tag, "フィールド %s のタグが書き込みキーと不一致", field.Name)
	}
}
