// Package validator 提供模型参数与配置的结构体校验，校验失败统一转换为 xerrors 错误。
package validator

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/wyfcoding/cosmethod/xerrors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Instance 返回共享的校验器，额外注册了 finite 标签（拒绝 NaN 与 ±Inf）。
func Instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			f := fl.Field()
			switch f.Kind() {
			case reflect.Float32, reflect.Float64:
				v := f.Float()
				return !math.IsNaN(v) && !math.IsInf(v, 0)
			default:
				return true
			}
		})
	})
	return validate
}

// Struct 校验结构体，失败时返回包装了 base 的错误，Detail 中列出违规字段。
func Struct(v any, base *xerrors.Error) error {
	err := Instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return base.WithCause(err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s=%v violates %s=%s", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param()))
		} else {
			fields = append(fields, fmt.Sprintf("%s=%v violates %s", fe.Namespace(), fe.Value(), fe.Tag()))
		}
	}
	return base.WithDetail("%s", strings.Join(fields, "; "))
}

// IsFinite 判断所有值均为有限数。
func IsFinite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsPositive 判断所有值均为有限正数。
func IsPositive(vals ...float64) bool {
	for _, v := range vals {
		if !(v > 0) || math.IsInf(v, 1) {
			return false
		}
	}
	return true
}
