package table

// Predefined sub-tables. The bit patterns are the float32 coefficients of the
// approximations in pkg/eltwise.

func bcast(key Key, vals ...uint32) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = Value{Key: key, Val: v, Bcast: true}
	}
	return out
}

func concat(parts ...[]Value) []Value {
	var out []Value
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// CommonValues are shared by several algorithms and always registered.
var CommonValues = concat(
	bcast(Zero, 0x00000000),
	bcast(Half, 0x3f000000),
	bcast(One, 0x3f800000),
	bcast(Two, 0x40000000),
	bcast(MinusOne, 0xbf800000),
	bcast(MinusTwo, 0xc0000000),
	bcast(Ln2f, 0x3f317218),
	bcast(PositiveMask, 0x7fffffff),
	bcast(SignMask, 0x80000000),
	bcast(ExponentBias, 0x0000007f),
)

// ExpConsts: log2(e), ln(FLT_MAX) and ln(FLT_MIN).
var ExpConsts = concat(
	bcast(ExpLog2ef, 0x3fb8aa3b),
	bcast(ExpLnFltMax, 0x42b17218),
	bcast(ExpLnFltMin, 0xc2aeac50),
)

// ExpPolynomial holds p1..p5 of the degree-5 exp approximation on
// [-ln2/2, ln2/2].
var ExpPolynomial = bcast(ExpPol,
	0x3f7ffffb, // 0.999999701
	0x3efffee3, // 0.499991506
	0x3e2aad40, // 0.166676521
	0x3d2b9d0d, // 0.0418978221
	0x3c07cfce, // 0.00828929059
)

var TanhConsts = concat(
	bcast(TanhIdxBias, 0x39800000),
	bcast(TanhIdxMask, 0xffc00000),
	bcast(TanhLinearUbound, 0x39ddb3d7),
	bcast(TanhSaturationLbound, 0x41102cb3),
)

// TanhIntervals is the number of intervals the tanh polynomial bank covers.
const TanhIntervals = 32

// TanhDegree is the degree of each per-interval tanh polynomial.
const TanhDegree = 6

// tanhBank[k][i] is the degree-k coefficient for interval i.
var tanhBank = [TanhDegree + 1][TanhIntervals]uint32{
	{ // degree 0
		0x00000000, 0x39bfffff, 0x39ffffff, 0x3a3ffffe, 0x3a7ffffb, 0x3abffff7, 0x3affffeb, 0x3b3fffdc,
		0x3b7fffab, 0x3bbfff70, 0x3bfffeab, 0x3c3ffdc0, 0x3c7ffaab, 0x3cbff701, 0x3cffeaad, 0x3d3fdc08,
		0x3d7faacd, 0x3dbf7081, 0x3dfeacc9, 0x3e3dc7fd, 0x3e7acbf5, 0x3eb77a9f, 0x3eec9a9f, 0x3f22991f,
		0x3f42f7d6, 0x3f67b7cc, 0x3f76ca83, 0x3f7ebbe9, 0x3f7fd40c, 0x3f7fff32, 0x3f7ffffc, 0x3f800000,
	},
	{ // degree 1
		0x3f800000, 0x3f800018, 0x3f7fffe8, 0x3f7fffda, 0x3f7fffdc, 0x3f7fffdc, 0x3f7fffac, 0x3f7fff70,
		0x3f7ffeec, 0x3f7ffdc0, 0x3f7ffbed, 0x3f7ff704, 0x3f7feff5, 0x3f7fdbca, 0x3f7fbfff, 0x3f7f7041,
		0x3f7f009b, 0x3f7dc36c, 0x3f7c0aa8, 0x3f7734b8, 0x3f70a4de, 0x3f5f1fd8, 0x3f495493, 0x3f18b9ec,
		0x3ed706cb, 0x3e390b06, 0x3d90b11f, 0x3c21a053, 0x3aaf7fdb, 0x37ccc1a3, 0x355c6733, 0x00000000,
	},
	{ // degree 2
		0x00000000, 0xbe4e0ff1, 0x3d25b1b1, 0x3d6b6dab, 0x3c9fb1d5, 0xbabff06f, 0x3c07b3f6, 0xbb3fc1bc,
		0x3a9f5921, 0xbbbf06f2, 0xbbb0f402, 0xbc47db9e, 0xbc73d5e7, 0xbca25bda, 0xbcfca780, 0xbd40e07c,
		0xbd7dab03, 0xbdbe4a0f, 0xbdfb14a5, 0xbe36cc8d, 0xbe6bd102, 0xbe9fe7c5, 0xbeba0f10, 0xbec206a8,
		0xbea3c388, 0xbe277d62, 0xbd8b7960, 0xbc209f49, 0xbaad44ca, 0xb7c6eeac, 0xb663aa41, 0x00000000,
	},
	{ // degree 3
		0x00000000, 0x45b3ae96, 0xc414eb20, 0xc450e02e, 0xc3152b4e, 0xbead2f56, 0xc2162e02, 0xbeb4bd5a,
		0xc11a59a4, 0xbed2f507, 0xc020d32c, 0x3dd0f506, 0xbf2a75e2, 0xbff950e3, 0xbed47334, 0xbe809b8c,
		0xbeb64532, 0xbe961a5b, 0xbe9b63ac, 0xbea0d4b2, 0xbe828a77, 0xbe378612, 0xbdc20908, 0x3d2d3957,
		0x3dd46e89, 0x3db3f629, 0x3d2c5e7b, 0x3bd20403, 0x3a59dfae, 0x3770af45, 0x372cc014, 0x00000000,
	},
	{ // degree 4
		0x00000000, 0xcc981a1b, 0x4a7edd3d, 0x4ab1007c, 0x48fedd9c, 0x41a557b5, 0x477ee32a, 0x422557f5,
		0x45ff3ce4, 0x42a55641, 0x446e0867, 0xc33dc19a, 0x42915214, 0x43af4fad, 0x4110fe88, 0xc1099b75,
		0x3fc8a8dc, 0xbfbeaef5, 0xbe365aad, 0x3f4d9652, 0x3ddfa08f, 0x3e34e9b8, 0x3e2d07a6, 0x3dc63567,
		0x3cdaeb78, 0xbcd17537, 0xbc92829c, 0xbb43ab99, 0xb9b471dd, 0xb6baad5a, 0xb78bafc7, 0x00000000,
	},
	{ // degree 5
		0x00000000, 0x52f688d5, 0xd0505c72, 0xd08f98e3, 0xce505cc9, 0xc7162b8a, 0xcc5061d6, 0xc7162bdf,
		0xca50b37f, 0xc7162a3a, 0xc8422086, 0x471a714e, 0xc5ece1f1, 0xc70e3d90, 0xc3eba94a, 0x43e0c424,
		0xc21f4552, 0x42217cc8, 0x405e7dc4, 0xc10dd401, 0x3e96b602, 0xbd1a6d2f, 0xbd393883, 0xbd674682,
		0xbd310016, 0xb961e269, 0x3ba32495, 0x3a7680d5, 0x38b3173c, 0x35a9deea, 0x375c3f2a, 0x00000000,
	},
	{ // degree 6
		0x00000000, 0xd8995ed1, 0x558285ea, 0x55b2cd69, 0x53028625, 0x4bc9991f, 0x5082898a, 0x4b4999b3,
		0x4e02c07c, 0x4ac99764, 0x4b72c822, 0xca40c0e1, 0x489413e4, 0x49b12224, 0x46134c4e, 0xc60c2d57,
		0x43c83910, 0xc3c872d1, 0xc186bc9e, 0x42325bc3, 0xbf2ffa4a, 0x3d9a203c, 0xbc545a43, 0xbae08fee,
		0x3c80225d, 0x3b1fd1df, 0xba36b9d1, 0xb91de544, 0xb71f100f, 0xb408e2ed, 0xb685fec8, 0x00000000,
	},
}

// TanhPolynomialTable lays the bank out coefficient-major as lane entries, so
// the degree-k row starts at Off(TanhPolTable, k*TanhIntervals).
var TanhPolynomialTable = func() []Value {
	out := make([]Value, 0, len(tanhBank)*TanhIntervals)
	for _, row := range tanhBank {
		for _, v := range row {
			out = append(out, Value{Key: TanhPolTable, Val: v})
		}
	}
	return out
}()

var SoftReluConsts = concat(
	bcast(SoftReluOneTwentySix, 0x42fc0000),
	bcast(SoftReluMantissaSignMask, 0x807fffff),
)

// SoftReluPolynomial approximates ln(1 + x) for the mantissa part.
var SoftReluPolynomial = bcast(SoftReluPol,
	0xb2b4637d, 0x3f7fff8e, 0xbf001759, 0x3ea70608, 0xbea3d7bf,
	0xbe361d04, 0xbfa8f1e6, 0xbfe1e812, 0xbfc4d30e,
)

var GeluTanhConsts = concat(
	bcast(GeluTanhFittingConst, 0x3d372713),
	bcast(GeluTanhFittingConstTimesThree, 0x3e095d4f),
	bcast(GeluTanhSqrtTwoOverPi, 0x3f4c422a),
)

var GeluErfConsts = concat(
	bcast(GeluErfApproxConst, 0x3ea7ba05),
	bcast(GeluErfOneOverSqrtTwo, 0x3f3504f3),
	bcast(GeluErfOneOverSqrtPi, 0x3f106eba),
)

// GeluErfPolynomial holds the Abramowitz-Stegun erf coefficients p1..p5.
var GeluErfPolynomial = bcast(GeluErfPol,
	0x3e827906, 0xbe91a98e, 0x3fb5f0e3, 0xbfba00e3, 0x3f87dc22,
)

var LogConsts = concat(
	bcast(LogMinusInf, 0xff800000),
	bcast(LogQNaN, 0x7fc00000),
	bcast(LogMantissaMask, 0x007fffff),
	bcast(LogFullKRegMask, 0x0000ffff),
	bcast(LogFiveBitOffset, 0x0000001f),
)

var LogPolynomial = bcast(LogPol,
	0xbf000000, // -0.5
	0x3eaaaaab, // 0.333333343
	0xbe8004ab, // -0.250035613
	0x3e4cc8a3, // 0.199984118
)

// LogTableSize is the number of (r_i, log term) pairs in LogPredefinedValues.
const LogTableSize = 32

// LogPredefinedValues pairs an approximate reciprocal r_i of the mantissa
// bucket i with the log term for that bucket.
var LogPredefinedValues = bcast(LogPredefinedVals,
	0x3f800000, 0xc2b00f34,
	0x3f780000, 0xc2affef2,
	0x3f700000, 0xc2afee29,
	0x3f680000, 0xc2afdccd,
	0x3f600000, 0xc2afcad6,
	0x3f580000, 0xc2afb837,
	0x3f580000, 0xc2afb837,
	0x3f500000, 0xc2afa4e4,
	0x3f480000, 0xc2af90cf,
	0x3f480000, 0xc2af90cf,
	0x3f400000, 0xc2af7be9,
	0x3f400000, 0xc2af7be9,
	0x3f380000, 0xc2af661e,
	0x3f380000, 0xc2af661e,
	0x3f300000, 0xc2af4f5c,
	0x3f300000, 0xc2af4f5c,
	0x3fa80000, 0xc2b09a6f,
	0x3fa80000, 0xc2b09a6f,
	0x3fa00000, 0xc2b08174,
	0x3fa00000, 0xc2b08174,
	0x3fa00000, 0xc2b08174,
	0x3f980000, 0xc2b06731,
	0x3f980000, 0xc2b06731,
	0x3f900000, 0xc2b04b82,
	0x3f900000, 0xc2b04b82,
	0x3f900000, 0xc2b04b82,
	0x3f900000, 0xc2b04b82,
	0x3f880000, 0xc2b02e3e,
	0x3f880000, 0xc2b02e3e,
	0x3f880000, 0xc2b02e3e,
	0x3f800000, 0xc2b00f34,
	0x3f800000, 0xc2b00f34,
)
