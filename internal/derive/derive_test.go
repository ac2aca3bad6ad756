package derive_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/cfops/internal/derive"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

type stackRaw struct {
	Name string
}

func (s *stackRaw) Derive() *capi.Stack {
	if s == nil {
		return nil
	}

	return &capi.Stack{Name: s.Name}
}

type appRaw struct {
	Name  string
	Stack *stackRaw
}

func (a *appRaw) Derive() *capi.Application {
	if a == nil {
		return nil
	}

	return &capi.Application{Name: a.Name, Stack: a.Stack.Derive()}
}

func TestDerive_Idempotent(t *testing.T) {
	raw := &appRaw{Name: "web", Stack: &stackRaw{Name: "cflinuxfs4"}}

	first := raw.Derive()
	second := raw.Derive()

	assert.Empty(t, cmp.Diff(first, second))
	assert.NotSame(t, first, second)
}

func TestDerive_NilNested(t *testing.T) {
	raw := &appRaw{Name: "web"}

	app := raw.Derive()
	assert.Nil(t, app.Stack)

	var missing *appRaw
	assert.Nil(t, missing.Derive())
}

func TestNullable(t *testing.T) {
	assert.Nil(t, derive.Nullable[*capi.Stack](nil))

	stack := derive.Nullable[*capi.Stack](&stackRaw{Name: "cflinuxfs3"})
	assert.Equal(t, "cflinuxfs3", stack.Name)
}

func TestAll_PreservesOrder(t *testing.T) {
	raws := []*stackRaw{{Name: "a"}, nil, {Name: "c"}}

	stacks := derive.All[*capi.Stack](raws)

	assert.Len(t, stacks, 3)
	assert.Equal(t, "a", stacks[0].Name)
	assert.Nil(t, stacks[1])
	assert.Equal(t, "c", stacks[2].Name)
	assert.Nil(t, derive.All[*capi.Stack]([]*stackRaw(nil)))
}
