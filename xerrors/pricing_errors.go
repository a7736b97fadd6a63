package xerrors

var (
	// ErrInvalidInput 输入格式错误。
	ErrInvalidInput = New(ErrInvalidArg, 400002, "invalid input", "check your input parameters", nil)
	// ErrInvalidOptionType 无效的期权类型。
	ErrInvalidOptionType = New(ErrInvalidArg, 400004, "invalid option type", "supported types: CALL, PUT", nil)
	// ErrInvalidConfig 配置错误。
	ErrInvalidConfig = New(ErrInvalidArg, 400005, "invalid config", "series length and truncation must be positive", nil)
	// ErrInvalidParameter 模型参数超出定义域。
	ErrInvalidParameter = New(ErrInvalidArg, 400020, "invalid model parameter", "parameter violates the model domain", nil)
	// ErrShapeMismatch 数组输入长度不可广播。
	ErrShapeMismatch = New(ErrInvalidArg, 400021, "shape mismatch", "array inputs must share one length or be scalar", nil)
	// ErrDegenerateRange 截断区间退化。
	ErrDegenerateRange = New(ErrNumerical, 422001, "degenerate truncation range", "truncation bounds must be finite with a < b", nil)
	// ErrNonFiniteResult 特征函数或价格出现 NaN/Inf。
	ErrNonFiniteResult = New(ErrNumerical, 422002, "non-finite result", "characteristic function or premium is NaN or Inf", nil)
	// ErrNotConverged 级数在最大长度内未收敛。
	ErrNotConverged = New(ErrNumerical, 422003, "series not converged", "increase max series length or tolerance", nil)
)
