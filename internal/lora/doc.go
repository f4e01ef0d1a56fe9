// Package lora provides low-rank adapter layers and the freezing policy that
// leaves only adapter weights trainable.
//
// An adapter-augmented convolution is a module of type TypeConv2d carrying the
// nn.CapAdapter capability. It owns the wrapped base convolution as child "conv"
// and two parameters, lora_A and lora_B, whose product has the base weight's
// shape. Forward computation and weight merging are out of scope; only the
// parameter layout is modeled.
package lora
