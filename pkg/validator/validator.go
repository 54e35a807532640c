package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// gin 默认校验器替换为带翻译的版本，并注册业务自定义 tag

var (
	once  sync.Once
	trans ut.Translator
)

// ValidationError 单个字段的校验失败信息
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LazyInitGinValidator 替换 gin 的校验器，language 目前只支持 en
func LazyInitGinValidator(language string) {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		register(v)
		uni := ut.New(en.New())
		trans, _ = uni.GetTranslator(language)
		if trans == nil {
			trans, _ = uni.GetTranslator("en")
		}
		_ = en_translations.RegisterDefaultTranslations(v, trans)
	})
}

// New 独立使用的校验器，服务层和测试使用
func New() *validator.Validate {
	v := validator.New()
	register(v)
	return v
}

func register(v *validator.Validate) {
	// 错误信息使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
}

// Translate 将校验错误转为第一个字段的 ValidationError
func Translate(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	msg := fmt.Sprintf("failed on '%s' validation", fe.Tag())
	if trans != nil {
		msg = fe.Translate(trans)
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}
