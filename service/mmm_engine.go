package service

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrFitNoObservations = errors.New("not enough observations to fit model")
	ErrFitNoMedia        = errors.New("no media columns to fit")
	ErrFitSingularDesign = errors.New("design matrix is singular")
)

// Transform 作用在单个通道序列上的变换。nil 表示该变换不可用、直接跳过，
// 不再用异常兜底回退原值。
type Transform func(values []float64) []float64

// GeometricAdstock 几何衰减的 adstock 变换
func GeometricAdstock(rate float64) Transform {
	return func(values []float64) []float64 {
		out := make([]float64, len(values))
		carry := 0.0
		for i, v := range values {
			carry = v + rate*carry
			out[i] = carry
		}
		return out
	}
}

// LogSaturation log1p 饱和变换
func LogSaturation() Transform {
	return func(values []float64) []float64 {
		out := make([]float64, len(values))
		for i, v := range values {
			if v <= 0 {
				out[i] = 0
				continue
			}
			out[i] = math.Log1p(v)
		}
		return out
	}
}

// EngineOptions 采样参数与可选变换
type EngineOptions struct {
	Warmup  int
	Samples int
	Chains  int

	Adstock    Transform
	Saturation Transform

	Seed int64
}

func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Warmup:     1000,
		Samples:    1000,
		Chains:     2,
		Adstock:    GeometricAdstock(0.5),
		Saturation: LogSaturation(),
	}
}

// FitResult 贝叶斯线性模型的后验摘要
type FitResult struct {
	TargetCol string   `json:"target_col"`
	MediaCols []string `json:"media_cols"`
	ExtraCols []string `json:"extra_cols"`

	// 与 MediaCols 对齐
	MediaEffectHat []float64 `json:"media_effect_hat"`
	RoiHat         []float64 `json:"roi_hat"`

	CoefMean   []float64 `json:"coef_mean"`   // 截距 + 媒体 + 协变量
	CoefStddev []float64 `json:"coef_stddev"`
	Sigma      float64   `json:"sigma"`

	Warmup  int `json:"warmup"`
	Samples int `json:"samples"`
	Chains  int `json:"chains"`

	// 各媒体通道的后验抽样，用于画 posterior 图；不落盘
	MediaDraws [][]float64 `json:"-"`
	// 变换后的媒体矩阵，用于画 response_curves；不落盘
	TransformedMedia [][]float64 `json:"-"`
}

// FitInput 归一化后的训练输入
type FitInput struct {
	Target     []float64
	Media      [][]float64
	Extra      [][]float64
	TargetCol  string
	MediaCols  []string
	ExtraCols  []string
	TargetMean float64   // 原始目标列均值
	MediaMeans []float64 // 原始媒体列均值
}

// MMMEngine 媒体组合模型引擎：共轭正态线性模型上的后验抽样
type MMMEngine struct {
	Options EngineOptions
}

func NewMMMEngine(opts EngineOptions) *MMMEngine {
	if opts.Warmup <= 0 {
		opts.Warmup = 1000
	}
	if opts.Samples <= 0 {
		opts.Samples = 1000
	}
	if opts.Chains <= 0 {
		opts.Chains = 2
	}
	return &MMMEngine{Options: opts}
}

// Fit 拟合模型并汇总每个媒体通道的效应和 ROI 点估计
func (e *MMMEngine) Fit(input FitInput) (*FitResult, error) {
	n := len(input.Target)
	if n == 0 {
		return nil, ErrFitNoObservations
	}
	if len(input.Media) == 0 {
		return nil, ErrFitNoMedia
	}

	media := e.transformMedia(input.Media)

	// 设计矩阵: 截距 + 媒体 + 协变量
	p := 1 + len(media) + len(input.Extra)
	if n <= p {
		return nil, fmt.Errorf("%w: rows=%d coefficients=%d", ErrFitNoObservations, n, p)
	}

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j, col := range media {
			x.Set(i, 1+j, col[i])
		}
		for j, col := range input.Extra {
			x.Set(i, 1+len(media)+j, col[i])
		}
	}
	y := mat.NewVecDense(n, input.Target)

	beta, cov, sigma, err := solvePosterior(x, y)
	if err != nil {
		return nil, err
	}

	draws := e.sampleCoefficients(beta, cov)

	result := &FitResult{
		TargetCol:        input.TargetCol,
		MediaCols:        input.MediaCols,
		ExtraCols:        input.ExtraCols,
		Sigma:            sigma,
		Warmup:           e.Options.Warmup,
		Samples:          e.Options.Samples,
		Chains:           e.Options.Chains,
		TransformedMedia: media,
	}
	if result.ExtraCols == nil {
		result.ExtraCols = []string{}
	}

	result.CoefMean = make([]float64, p)
	result.CoefStddev = make([]float64, p)
	for j := 0; j < p; j++ {
		col := make([]float64, len(draws))
		for s, draw := range draws {
			col[s] = draw[j]
		}
		result.CoefMean[j] = stat.Mean(col, nil)
		result.CoefStddev[j] = stat.StdDev(col, nil)
	}

	result.MediaEffectHat = make([]float64, len(media))
	result.RoiHat = make([]float64, len(media))
	result.MediaDraws = make([][]float64, len(media))
	for j := range media {
		channelDraws := make([]float64, len(draws))
		channelMean := stat.Mean(media[j], nil)
		for s, draw := range draws {
			channelDraws[s] = draw[1+j] * channelMean
		}
		result.MediaDraws[j] = channelDraws
		effect := stat.Mean(channelDraws, nil)
		result.MediaEffectHat[j] = effect

		// ROI: 通道贡献换算回原始量纲后除以原始投放均值
		roi := 0.0
		if j < len(input.MediaMeans) && input.MediaMeans[j] != 0 {
			roi = effect * input.TargetMean / input.MediaMeans[j]
		}
		result.RoiHat[j] = roi
	}

	return result, nil
}

func (e *MMMEngine) transformMedia(media [][]float64) [][]float64 {
	out := make([][]float64, len(media))
	for i, col := range media {
		transformed := col
		if e.Options.Adstock != nil {
			transformed = e.Options.Adstock(transformed)
		}
		if e.Options.Saturation != nil {
			transformed = e.Options.Saturation(transformed)
		}
		out[i] = transformed
	}
	return out
}

// solvePosterior 解正态方程，返回系数均值、协方差和残差标准差
func solvePosterior(x *mat.Dense, y *mat.VecDense) ([]float64, *mat.SymDense, float64, error) {
	n, p := x.Dims()

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, nil, 0, ErrFitSingularDesign
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, nil, 0, fmt.Errorf("solve normal equations failed: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		rss += r * r
	}
	sigma2 := rss / float64(n-p)

	var xtxInv mat.SymDense
	if err := chol.InverseTo(&xtxInv); err != nil {
		return nil, nil, 0, fmt.Errorf("invert design gram matrix failed: %w", err)
	}

	cov := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			cov.SetSym(i, j, sigma2*xtxInv.At(i, j))
		}
	}

	return beta.RawVector().Data, cov, math.Sqrt(sigma2), nil
}

// sampleCoefficients 按 chains*samples 从 N(beta, cov) 抽样，warmup 段丢弃
func (e *MMMEngine) sampleCoefficients(beta []float64, cov *mat.SymDense) [][]float64 {
	p := len(beta)
	rng := rand.New(rand.NewSource(e.Options.Seed + 1))

	var chol mat.Cholesky
	root := mat.NewDense(p, p, nil)
	if ok := chol.Factorize(cov); ok {
		var tri mat.TriDense
		chol.LTo(&tri)
		root.Copy(&tri)
	}
	// 协方差不可分解时 root 退化为零阵，抽样塌缩到后验均值

	total := e.Options.Chains * e.Options.Samples
	draws := make([][]float64, 0, total)
	z := make([]float64, p)
	for c := 0; c < e.Options.Chains; c++ {
		for s := 0; s < e.Options.Warmup+e.Options.Samples; s++ {
			for i := range z {
				z[i] = rng.NormFloat64()
			}
			if s < e.Options.Warmup {
				continue
			}
			draw := make([]float64, p)
			for i := 0; i < p; i++ {
				draw[i] = beta[i]
				for j := 0; j <= i; j++ {
					draw[i] += root.At(i, j) * z[j]
				}
			}
			draws = append(draws, draw)
		}
	}
	return draws
}
